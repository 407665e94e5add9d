package service

// kbSystemPrompt grounds free-form answers in the knowledge base. The
// article text (or "No articles found.") is appended by the caller.
const kbSystemPrompt = `You are an internal INB IT Help Desk assistant. Use the following FreshService knowledge base to help the user:

%s

If the knowledge base is insufficient, offer to create a help desk ticket. If the user directly requests to create a ticket, proceed with submitting one.`

// wantsTicketPrompt is the yes/no sub-question that decides whether the turn
// should flip the awaiting-ticket-preview flag.
const wantsTicketPrompt = `The user sent a message to an IT help desk assistant and got a reply. Does the exchange indicate the user wants a help desk ticket created, or that the assistant offered to create one? Answer with exactly one word: yes or no.`

// ticketDetailsPrompt asks the completion service to derive a draft from the
// user-authored turns of the transcript. The priority rules are advisory
// instructions only; the result is still normalized before storage.
const ticketDetailsPrompt = `You are an AI assistant helping an IT support team.
Given a user's messages, generate a JSON object with the following fields:
- subject: a brief title of the issue
- description: a clear, professional summary
- priority: 1 (Low), 2 (Medium), 3 (High), or 4 (Urgent) depending on urgency

Priority guidance: words like "urgent", "asap", "down for everyone" mean Urgent. Login, password, or email access problems are Medium. Issues blocking the user's work but not critical are High. Everything else is Low.

Return only the JSON. Example:
{
  "subject": "Cannot access Outlook email",
  "description": "The user is experiencing issues accessing their Outlook email account. They have tried restarting their computer and checking internet connectivity.",
  "priority": 2
}`

// rewriteFieldPrompt rewrites one draft field from the user's instruction,
// with the conversation so far as context. %s slots: field name, transcript,
// current value.
const rewriteFieldPrompt = `You are helping edit the %s of a help desk ticket draft.

Conversation so far:
%s

Current %[1]s:
%[3]s

Rewrite the %[1]s following the user's instruction. Reply with the new %[1]s only: no labels, no markdown, no commentary.`

// confirmDecisionPrompt classifies the user's reply to "do you want to
// submit this ticket?" into a three-way decision.
const confirmDecisionPrompt = `The user was just asked if they want to submit a help desk ticket. Classify their reply. Respond with exactly one word: submit, cancel, or unclear.`
