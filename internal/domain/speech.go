package domain

// Transcription is the result of speech-to-text.
type Transcription struct {
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
}

// SpeechRequest is the body of POST /api/tts.
type SpeechRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	Model      string `json:"model"`
}

// VisionRequest describes an image captioning call.
type VisionRequest struct {
	FilePath string
	Prompt   string
	Model    string
}
