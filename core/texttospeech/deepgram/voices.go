package deepgram

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-2-asteria-en"
	VoiceThalia  deepgramVoice = "aura-2-thalia-en"
	VoiceHelena  deepgramVoice = "aura-2-helena-en"
	VoiceOrion   deepgramVoice = "aura-2-orion-en"
	VoiceCeleste deepgramVoice = "aura-2-celeste-es"
	VoiceNestor  deepgramVoice = "aura-2-nestor-es"

	defaultVoice = VoiceAsteria
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceAsteria, VoiceThalia, VoiceHelena, VoiceOrion, VoiceCeleste, VoiceNestor}
}

// ParseVoice returns the voice named, or false if Deepgram does not offer it.
func ParseVoice(name string) (deepgramVoice, bool) {
	for _, voice := range GetAvailableVoices() {
		if string(voice) == name {
			return voice, true
		}
	}
	return "", false
}
