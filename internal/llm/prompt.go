package llm

import "strings"

// TruncationMarker is appended whenever document text is cut to fit the
// model's context window.
const TruncationMarker = "\n\n[... text truncated ...]"

// TruncateText caps document text at maxChars, appending the truncation
// marker when anything was cut. maxChars <= 0 disables truncation.
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + TruncationMarker
}

// BuildGapSystemPrompt composes the system message for the discrepancy pass.
func BuildGapSystemPrompt() string {
	return "You are a financial auditor. Always respond with valid JSON only."
}

// BuildGapUserPrompt packages document text for the discrepancy pass.
func BuildGapUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are a financial auditor analyzing documents for accounting discrepancies. ")
	b.WriteString("Look for situations where the town/district thought a monetary amount was one figure, but the figure changed or increased beyond what was originally thought was owed.\n\n")
	b.WriteString("Analyze the following text and identify any accounting gaps or discrepancies where:\n")
	b.WriteString("- An initial monetary amount was stated or expected\n")
	b.WriteString("- The amount changed or increased beyond the original expectation\n")
	b.WriteString("- There is a difference between what was originally thought/budgeted and what actually occurred\n\n")
	b.WriteString("Return your analysis as a JSON object with these fields:\n")
	b.WriteString(`- "title": a one-sentence description of the discrepancy (or "No accounting discrepancy found" if none)` + "\n")
	b.WriteString(`- "description": a detailed summary of the discrepancy, including what amount was originally thought/expected and what it changed to. If no discrepancy, state "No accounting discrepancy or financial impact found."` + "\n")
	b.WriteString(`- "item": the item, service, or line item the adjustment was for (e.g., "Building maintenance contract"). If no discrepancy, use "N/A"` + "\n")
	b.WriteString(`- "participants": a comma-separated list of names of people involved in the communication, taken from email headers (From, To, CC) and signatures. If no names found, use "Unknown"` + "\n")
	b.WriteString(`- "amount_increase": the dollar amount of the increase beyond what was originally thought, as a number without $ sign (e.g., 5000.00). If no discrepancy, use 0.00` + "\n\n")
	b.WriteString("IMPORTANT:\n")
	b.WriteString("- Return ONLY valid JSON, no other text\n")
	b.WriteString("- If there is no discrepancy or no financial impact, set amount_increase to 0.00\n")
	b.WriteString("- The amount_increase should be the difference between the original expected amount and the new/changed amount\n\n")
	b.WriteString("Text to analyze:\n")
	b.WriteString(text)
	return b.String()
}

// BuildAlarmSystemPrompt composes the system message for the compliance pass.
func BuildAlarmSystemPrompt() string {
	return "You are a Town/District compliance auditor. Always respond with valid JSON only. " +
		"Use plain text, no ASCII art or special formatting."
}

// BuildAlarmUserPrompt packages document text for the compliance pass.
func BuildAlarmUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are a Town/District compliance auditor analyzing documents for potential issues. ")
	b.WriteString("You are responsible for ensuring that the Town/District is compliant with all applicable laws and regulations, and that it operates in a transparent and ethical manner. ")
	b.WriteString("You can ignore minor discrepancies that are not significant, email signatures, etc.\n\n")
	b.WriteString("Analyze the following text content (typically an email or communication) and identify:\n")
	b.WriteString("- Questionable actions or decisions\n")
	b.WriteString("- Discrepancies or inconsistencies\n")
	b.WriteString("- Subjects or topics that raise alarms or red flags\n")
	b.WriteString("- Potential ethical or procedural violations\n")
	b.WriteString("- Conflicts of interest\n")
	b.WriteString("- Any other concerns that warrant attention\n\n")
	b.WriteString("Return your analysis as a JSON object with these fields:\n")
	b.WriteString(`- "date_time": the date and time extracted from email headers (From, Date, Sent). Format as YYYY-MM-DD HH:MM:SS if available, or YYYY-MM-DD if only a date is available. Use null if no date can be determined.` + "\n")
	b.WriteString(`- "summary": a comprehensive summary of your findings. Be specific and cite examples from the text where possible. Plain text only. If no concerning issues are found, state that clearly.` + "\n\n")
	b.WriteString("IMPORTANT: Return ONLY valid JSON, no other text.\n\n")
	b.WriteString("This is an email thread, so multiple emails may be included:\n")
	b.WriteString(text)
	return b.String()
}

// BuildReferencesSystemPrompt composes the system message for the
// missing-attachment pass.
func BuildReferencesSystemPrompt() string {
	return "You are an email attachment analyzer. Always respond with valid JSON only. " +
		"Extract actual filenames with extensions (e.g., document.pdf, report.xlsx) - not generic descriptions."
}

// BuildReferencesUserPrompt packages document text for the missing-attachment pass.
func BuildReferencesUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are analyzing an email or message thread to identify attachments that were referenced but not included.\n\n")
	b.WriteString("Look for phrases like \"Please see attached\", \"I've attached\", \"See attachment\", and any mention of documents or files that are expected but missing from the subject line or body.\n\n")
	b.WriteString("Return your analysis as a JSON object with this structure:\n")
	b.WriteString(`{"references": [{"attachment_name": "invoice_2024.pdf", "message_date": "2024-01-15"}]}` + "\n\n")
	b.WriteString("IMPORTANT:\n")
	b.WriteString("- Return ONLY valid JSON, no other text\n")
	b.WriteString("- If no missing attachments are found, use an empty array for \"references\"\n")
	b.WriteString("- Each attachment_name MUST be an actual filename with a dotted extension (.pdf, .docx, .xlsx, ...). Do not use generic descriptions like \"the invoice\" - use the actual filename as mentioned. If only a generic description appears, infer a reasonable filename with an appropriate extension.\n")
	b.WriteString("- message_date is the date from the email headers, ISO format (YYYY-MM-DD, with HH:MM:SS if available); use null if it cannot be determined\n")
	b.WriteString("- Only include attachments explicitly referenced but not present\n\n")
	b.WriteString("This is an email thread, so multiple emails may be included:\n")
	b.WriteString(text)
	return b.String()
}
