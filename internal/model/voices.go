package model

// BabyVoices maps the symbolic voice names accepted in campaign profiles
// to literal ElevenLabs voice ids. Profiles may also carry a vendor id
// directly, in which case it is used as-is.
var BabyVoices = map[string]string{
	"baby_voice_1": "EXAVITQu4vr4xnSDxMaL",
	"baby_voice_2": "ErXwobaYiN019PkySvjV",
}

// ResolveVoiceID substitutes a symbolic voice name with its vendor id.
// Unknown references pass through unchanged.
func ResolveVoiceID(ref string) string {
	if id, ok := BabyVoices[ref]; ok {
		return id
	}
	return ref
}

// VoiceInfo describes one available voice for the listing endpoint.
type VoiceInfo struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}
