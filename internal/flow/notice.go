package flow

// Notice is a dismissible, user-visible message.
type Notice struct {
	Title       string
	Description string
	Destructive bool
}

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

var (
	noticeRecognitionUnsupported = Notice{
		Title:       "Speech recognition not supported",
		Description: "Your platform doesn't support speech recognition",
		Destructive: true,
	}
	noticeListening = Notice{
		Title:       "Listening...",
		Description: "Speak your question now",
	}
	noticeVoiceError = Notice{
		Title:       "Voice input error",
		Description: "Could not understand audio. Please try again.",
		Destructive: true,
	}
	noticeEmptyQuestion = Notice{
		Title:       "Please enter a question",
		Description: "Type or speak your question to get an explanation",
		Destructive: true,
	}
	noticeAnswerReady = Notice{
		Title:       "Answer generated!",
		Description: "Your explanation is ready",
	}
	noticeAskFailed = Notice{
		Title:       "Error",
		Description: "Failed to generate answer. Please try again.",
		Destructive: true,
	}
	noticeSpeechUnsupported = Notice{
		Title:       "Text-to-speech not supported",
		Description: "Your platform doesn't support speech synthesis",
		Destructive: true,
	}
	noticeSpeaking = Notice{
		Title:       "Speaking answer",
		Description: "Audio playback started",
	}
)

func noticeVoiceReceived(transcript string) Notice {
	return Notice{
		Title:       "Voice input received",
		Description: `You said: "` + transcript + `"`,
	}
}
