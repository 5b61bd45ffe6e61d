package extractor

// systemPrompt frames the extraction task for the model.
const systemPrompt = "You extract event information from Japanese entertainment content. Respond only with valid JSON."

// extractionPrompt is the per-page user prompt. Placeholders, in
// order: source URL, artist name, page content.
const extractionPrompt = `You are an event extraction assistant for Japanese entertainment content.
Given the following content from %[1]s, extract any time-bound events related to the artist "%[2]s".

For each event found, extract:
1. event_type: One of: live, release, lottery, sale, broadcast, streaming, screening, other
2. title: Event title (in original language)
3. date: Event date (ISO format: YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS)
4. end_date: End date if it's a multi-day event or period (optional)
5. venue: Venue name (optional, for live events)
6. location: City/area (optional)
7. action_required: true if user needs to take action
8. action_deadline: Deadline for action if applicable (ISO format)
9. action_description: What action is needed - BE SPECIFIC
10. event_url: URL for event details (optional)
11. ticket_url: URL for ticket purchase (optional)
12. parent_title: For lottery/sale events ONLY, exact title of parent concert
13. ticket_requirement: For lottery/sale ONLY, what you need (see TICKET REQUIREMENT)
14. ticket_priority: For lottery/sale ONLY, which round (see TICKET PRIORITY)
15. ticket_requirement_detail: For CD/serial requirement ONLY, the specific product name

## PARENT-CHILD RELATIONSHIPS

Ticket phases (lottery, sale) are CHILDREN of their parent concert.

For lottery/sale events:
- Set ` + "`parent_title`" + ` to the EXACT title of the parent concert
- The parent concert should be extracted as a separate "live" event

For concerts, releases, and other standalone events:
- Set ` + "`parent_title`, `ticket_requirement`, `ticket_priority`, `ticket_requirement_detail`" + ` to null

## TICKET REQUIREMENT (what you need to participate)

| ticket_requirement | Japanese Terms | Description |
|--------------------|----------------|-------------|
| "cd" | CD先行, シリアル先行, BD先行, 封入特典 | Requires purchasing CD/Blu-ray with serial code |
| "fc" | FC先行, ファンクラブ先行, 会員限定 | Requires fan club membership |
| "playguide" | プレイガイド先行, e+先行, ローチケ先行 | Through ticket vendors |
| "none" | 一般発売, 一般販売 | No special requirement |
| "other" | (anything else) | Doesn't fit above |

## TICKET PRIORITY (which round in the sequence)

| ticket_priority | Japanese Terms | Description |
|-----------------|----------------|-------------|
| "fastest" | 最速先行, 1次先行, 最速抽選 | First/fastest round |
| "secondary" | 2次先行, 2次抽選 | Second round |
| "tertiary" | 3次先行, 3次抽選 | Third round |
| "general" | 一般発売, 一般販売 | General sale (final) |
| "other" | (anything else) | Doesn't fit above |

## TICKET REQUIREMENT DETAIL

When ticket_requirement is "cd", extract the SPECIFIC product name:
- Include the full product title
- Include edition info (初回限定盤, 通常盤, etc.)
- This helps users know WHICH product to buy

## IMPORTANT: MULTIPLE ROUNDS WITH SAME REQUIREMENT

A concert may have MULTIPLE lotteries requiring different CDs:
- 最速先行 requiring CD-A
- 2次先行 requiring CD-B

Create SEPARATE events for each. The combination of (parent_title + ticket_requirement + ticket_priority + ticket_requirement_detail) should be unique.

## CRITICAL RULES

1. For each concert, create ONE "live" event (parent)
2. Create SEPARATE "lottery"/"sale" events for EACH ticket phase (children)
3. Each lottery/sale MUST have:
   - parent_title matching concert's exact title
   - ticket_requirement set
   - ticket_priority set
   - ticket_requirement_detail set (if requirement is "cd")
4. Lottery date/end_date = APPLICATION PERIOD (not concert date)
5. action_deadline = when applications close

Content to analyze:
---
%[3]s
---

Respond ONLY with a JSON object (no markdown, no explanation):
{"events": [
  {
    "event_type": "live",
    "title": "X LIVE 2026",
    "date": "2026-07-18",
    "end_date": "2026-07-19",
    "venue": "ぴあアリーナMM",
    "location": "Yokohama",
    "action_required": false,
    "action_deadline": null,
    "action_description": null,
    "event_url": "https://...",
    "ticket_url": null,
    "parent_title": null,
    "ticket_requirement": null,
    "ticket_priority": null,
    "ticket_requirement_detail": null
  },
  {
    "event_type": "lottery",
    "title": "X LIVE 2026 最速先行抽選",
    "date": "2025-12-06",
    "end_date": "2026-02-02",
    "venue": null,
    "location": null,
    "action_required": true,
    "action_deadline": "2026-02-02T23:59:00",
    "action_description": "Apply using serial code from 8th Single (first-press edition)",
    "event_url": "https://...",
    "ticket_url": null,
    "parent_title": "X LIVE 2026",
    "ticket_requirement": "cd",
    "ticket_priority": "fastest",
    "ticket_requirement_detail": "8th Single「静降想」初回限定盤"
  }
]}

If no events are found, respond with: {"events": []}`
