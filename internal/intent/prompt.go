package intent

// classifierPrompt constrains the completion service to a single JSON object
// over the fixed intent vocabulary. The transcript is deliberately excluded:
// classification depends only on the current utterance.
const classifierPrompt = `You are an intent classifier for an internal IT help desk assistant.
Classify the user's message into exactly one of these intents:

- update_description: the user wants to change the description of a ticket preview
- update_subject: the user wants to change the subject of a ticket preview
- show_ticket: the user wants to see the current ticket preview
- update_priority: the user wants to change the priority of a ticket preview
- ticket_activity: the user asks for conversations, updates, history or activity on an existing ticket
- ticket_status: the user asks for the status of an existing ticket
- tick_agent: the user asks which agent is assigned to an existing ticket
- list_tickets: the user wants to see their own tickets
- create_ticket: the user explicitly asks to create or submit a help desk ticket
- general_help: the user asks an IT question or describes a problem
- other: anything else

Respond with ONLY a JSON object, no prose and no code fences:
{"intent": "<one of the intents>", "confidence": <number 0 to 1>, "extracted_data": {}}

Inside extracted_data include only fields the intent needs:
- for update_priority: "priority" as one of Low, Medium, High, Urgent
- for ticket_activity, ticket_status, tick_agent: "ticket_id" as the ticket number if the message contains one`
