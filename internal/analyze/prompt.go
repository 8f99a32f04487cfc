// Package analyze turns extracted document text into a structured
// narrative via an external chat model, bounding what is sent and
// folding every failure into presentable output.
package analyze

import "fmt"

const (
	// analysisCeiling caps the characters of document text forwarded
	// with the initial analysis request.
	analysisCeiling = 10000
	// followupCeiling caps the document text re-sent with each
	// follow-up question.
	followupCeiling = 8000
)

const systemPrompt = "You are a legal assistant AI for a law firm. " +
	"Provide clear, structured analysis of legal documents."

// AnalysisPrompt composes the seven-section analysis request for a
// document. Pure: same inputs, same prompt.
func AnalysisPrompt(text, filename string) string {
	return fmt.Sprintf(`Analyze the following document and provide:
1. **Document Type**: what kind of document this is
2. **Summary**: a concise summary of the content
3. **Key Parties**: people or organizations involved
4. **Important Dates**: deadlines and dates mentioned
5. **Legal Issues**: legal matters or concerns raised
6. **Action Items**: things that need to be done
7. **Risk Assessment**: potential risks or red flags

Document name: %s

Document content:
%s`, filename, Truncate(text, analysisCeiling))
}

// FollowupPrompt composes a question prompt scoped to one document.
// The document text is truncated fresh from the full extraction, not
// from the analysis-time cut.
func FollowupPrompt(question, text, lastAnalysis, filename string) string {
	return fmt.Sprintf(`You previously analyzed the document %q. Your analysis was:

%s

Document content:
%s

Answer the following question about this document only:
%s`, filename, lastAnalysis, Truncate(text, followupCeiling), question)
}

// Truncate returns at most limit characters of s. Counted in runes so
// a multi-byte character is never split.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
