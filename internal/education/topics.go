package education

import (
	"encoding/json"
	"slices"

	"github.com/JaimeStill/adherence/intervention"
)

// Topic is the storage key of an educational topic.
type Topic string

// Valid topics.
const (
	TopicDiet      Topic = "diet"
	TopicExercise  Topic = "exercise"
	TopicOtherTips Topic = "other_tips"
)

var topics = []Topic{
	TopicDiet,
	TopicExercise,
	TopicOtherTips,
}

// Topics returns the valid topics in menu order.
func Topics() []Topic {
	return topics
}

// UnmarshalJSON validates that the decoded string is a known topic.
func (t *Topic) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseTopic(raw)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Intervention converts the key to the dialogue topic.
func (t Topic) Intervention() intervention.Topic {
	return intervention.TopicFromKey(string(t))
}

// ParseTopic validates s as a known topic key.
func ParseTopic(s string) (Topic, error) {
	v := Topic(s)
	if !slices.Contains(topics, v) {
		return "", ErrInvalidTopic
	}
	return v, nil
}

// Default returns the built-in text for a topic.
func Default(topic Topic) (string, error) {
	text := intervention.DefaultEducation(topic.Intervention())
	if text == "" {
		return "", ErrInvalidTopic
	}
	return text, nil
}
