package llm

import "strings"

const SystemPrompt = "You are an assistant that corrects the format of English-Chinese word lists."

const (
	contentStart = "Raw content:\n"
	contentEnd   = "\nFollow the format above strictly and output nothing else."
)

const promptHead = `Rewrite the word list below into one entry per line. Every line has five fields separated by "|", with no spaces around the delimiters:
en: the English word, phrase or sentence
zh: the Chinese translation; a semicolon separates two different senses
pro: the part of speech; only words have one, use NULL for phrases and sentences
type: 0 for a word, -1 for a phrase, 1 for a sentence
promt: for phrases and sentences, the most specific original word the entry belongs to, found in the preceding lines only; NULL for words
Fix OCR mistakes, missing fields, wrong order and missing parts of speech. Text between "/" marks may be phonetics; drop it.
When an entry has several parts of speech or senses, repeat the English on a new line for each.

One part of speech, one sense:
|abandon|放弃|vt.|0|NULL|
Several parts of speech, input "contrary/'kontrari/ n./adj. 相反", output:
|contrary|相反|n.|0|NULL|
|contrary|相反|adj.|0|NULL|
Input "shoulder/feulde/ n. 肩膀 vt. 挑起，扛起；担负", output:
|shoulder|肩膀|n.|0|NULL|
|shoulder|挑起，扛起；担负|vt.|0|NULL|
One part of speech, several senses, input "consume /ken'sju:m/ vt.消费；吃，喝；消耗", output:
|consume|消费|vt.|0|NULL|
|consume|吃，喝|vt.|0|NULL|
|consume|消耗|vt.|0|NULL|
Phrase:
|consider doing|考虑做……|NULL|-1|consider|
Sentence:
|As we get older, we often find it difficult to understand music.|年龄增长时，我们常常发现难以理解音乐。|NULL|1|understand|

`

// BuildUserPrompt wraps one chunk of raw text in the normalization instructions.
func BuildUserPrompt(content string) string {
	return promptHead + contentStart + content + contentEnd
}

// ExtractContent recovers the raw chunk from a prompt built by BuildUserPrompt.
// Any other prompt is returned unchanged.
func ExtractContent(prompt string) string {
	i := strings.Index(prompt, contentStart)
	if i < 0 {
		return prompt
	}
	rest := prompt[i+len(contentStart):]
	if j := strings.LastIndex(rest, contentEnd); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
