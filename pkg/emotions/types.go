// Package emotions provides the fixed set of emotion categories and the
// per-emotion response profiles used to steer generated replies.
//
// Profiles are loaded from an embedded YAML table at build time. Lookups are
// exact and case-sensitive; any key that is not one of the seven categories
// resolves to the neutral profile.
package emotions

// Emotion is one of the seven supported categories.
type Emotion string

const (
	Happy    Emotion = "happy"
	Sad      Emotion = "sad"
	Angry    Emotion = "angry"
	Fear     Emotion = "fear"
	Surprise Emotion = "surprise"
	Disgust  Emotion = "disgust"
	Neutral  Emotion = "neutral"
)

// All returns the supported emotions in a stable order.
func All() []Emotion {
	return []Emotion{Happy, Sad, Angry, Fear, Surprise, Disgust, Neutral}
}

// Parse returns the Emotion for s and whether s is a supported key.
// The match is exact: "Happy" is not "happy".
func Parse(s string) (Emotion, bool) {
	for _, e := range All() {
		if string(e) == s {
			return e, true
		}
	}
	return Neutral, false
}

// String implements fmt.Stringer.
func (e Emotion) String() string {
	return string(e)
}

// Profile describes how to respond to a user showing an emotion.
type Profile struct {
	// Emotion is the category this profile belongs to.
	Emotion Emotion `yaml:"emotion"`

	// Guidance is a one-line instruction for the language model.
	Guidance string `yaml:"guidance"`

	// Fallback is the canned reply used when no language model answers.
	Fallback string `yaml:"fallback"`

	// Tone is a short label for the response style.
	Tone string `yaml:"tone"`
}

// profileFile is the on-disk shape of data/profiles.yaml.
type profileFile struct {
	Profiles []Profile `yaml:"profiles"`
}
