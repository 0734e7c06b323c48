package query

// Vocabulary holds the fixed term lists used to classify a job description.
// It is configuration: the defaults below only preserve the behaviour the
// catalog was tuned against.
type Vocabulary struct {
	Skills []string `mapstructure:"skills"`
	Tools  []string `mapstructure:"tools"`
	// Topics maps a course tag to the phrases that make a description
	// relevant for courses carrying that tag.
	Topics map[string][]string `mapstructure:"topics"`
}

// DefaultVocabulary returns the stock skill, tool and topic lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Skills: []string{"robotics", "design", "integration", "autonomous"},
		Tools:  []string{"python", "cad", "ros", "c++", "solidworks"},
		Topics: map[string][]string{
			"ai":     {"artificial intelligence", "ai", "machine learning", "ml", "deep learning"},
			"python": {"python", "programming", "developer"},
		},
	}
}

// withDefaults fills empty lists from DefaultVocabulary.
func (v Vocabulary) withDefaults() Vocabulary {
	def := DefaultVocabulary()
	if len(v.Skills) == 0 {
		v.Skills = def.Skills
	}
	if len(v.Tools) == 0 {
		v.Tools = def.Tools
	}
	if len(v.Topics) == 0 {
		v.Topics = def.Topics
	}
	return v
}
