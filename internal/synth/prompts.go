package synth

import "strings"

const answerSystemPrompt = `You are an AI legal document assistant specialized in analyzing legal documents and contracts.
Your task is to answer questions based on the provided document context.

Please follow these guidelines:
1. Only answer based on the information in the provided context
2. If the answer is not in the context, say "I don't have enough information to answer this question based on the document."
3. Provide specific references to sections or clauses when relevant
4. Use formal and precise language appropriate for legal discussions
5. Do not make up or assume information not present in the context

Focus on providing factual, accurate analysis of the legal text without adding personal opinions or legal advice.`

const summarySystemPrompt = "You are an AI legal document assistant specialized in analyzing and summarizing legal texts. " +
	"Provide clear, concise summaries that capture the essential elements of legal documents."

// Display texts returned in place of a model answer.
const (
	NoContextText       = "I couldn't find any relevant information in the document to answer your question."
	SummaryFailedText   = "I encountered an error while trying to generate a summary of the document."
	answerFailurePrefix = "I encountered an error while trying to answer your question: "
)

func answerPrompt(query string, texts []string) string {
	var b strings.Builder
	b.WriteString("You are a legal document analysis assistant. Please answer the following question about the legal document carefully and precisely:\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nDocument Context:\n```\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n```\n\n")
	b.WriteString(`Instructions:
1. Answer the question using ONLY the information provided in the document context above
2. If the answer is directly stated in the text, quote the relevant part
3. If the answer requires combining information from multiple parts, explain clearly
4. If you cannot find the information to answer the question in the context, say "Based on the provided document context, I cannot find information to answer this question."
5. Be concise but thorough in your response

Answer:`)
	return b.String()
}

func summaryPrompt(sample string) string {
	var b strings.Builder
	b.WriteString("Summarize the following excerpt from a legal document:\n\n```\n")
	b.WriteString(sample)
	b.WriteString("\n```\n\n")
	b.WriteString(`Please provide a concise summary that:
1. Identifies the type of legal document
2. Explains the main purpose and subject matter
3. Highlights key provisions or sections
4. Notes any important clauses, deadlines, or obligations
5. Uses formal language appropriate for legal document analysis

Your summary should be comprehensive yet concise (300-500 words).`)
	return b.String()
}
