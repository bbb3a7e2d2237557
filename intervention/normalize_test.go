package intervention_test

import (
	"testing"

	"github.com/JaimeStill/adherence/intervention"
)

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  intervention.YesNo
	}{
		{"1", intervention.Yes},
		{"yes", intervention.Yes},
		{"Y", intervention.Yes},
		{" yes ", intervention.Yes},
		{"YES", intervention.Yes},
		{"2", intervention.No},
		{"no", intervention.No},
		{"N", intervention.No},
		{"", intervention.YesNoInvalid},
		{"3", intervention.YesNoInvalid},
		{"maybe", intervention.YesNoInvalid},
		{"yes please", intervention.YesNoInvalid},
		{"unable", intervention.YesNoInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := intervention.ParseYesNo(tt.input); got != tt.want {
				t.Errorf("ParseYesNo(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseYesNoUnregistered(t *testing.T) {
	tests := []struct {
		input string
		want  intervention.Response
	}{
		{"1", intervention.ResponseYes},
		{"y", intervention.ResponseYes},
		{"2", intervention.ResponseNo},
		{"No", intervention.ResponseNo},
		{"3", intervention.ResponseUnregistered},
		{"unable", intervention.ResponseUnregistered},
		{"Unable to register input", intervention.ResponseUnregistered},
		{" unregistered", intervention.ResponseUnregistered},
		{"", intervention.ResponseInvalid},
		{"4", intervention.ResponseInvalid},
		{"unable to", intervention.ResponseInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := intervention.ParseYesNoUnregistered(tt.input); got != tt.want {
				t.Errorf("ParseYesNoUnregistered(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		input string
		want  intervention.Topic
	}{
		{"1", intervention.TopicDiet},
		{"Diet", intervention.TopicDiet},
		{"2", intervention.TopicExercise},
		{"exercise", intervention.TopicExercise},
		{"3", intervention.TopicOtherTips},
		{"other tips", intervention.TopicOtherTips},
		{"other", intervention.TopicOtherTips},
		{"TIPS", intervention.TopicOtherTips},
		{"4", intervention.TopicLeave},
		{"leave", intervention.TopicLeave},
		{"leave now", intervention.TopicLeave},
		{"no response", intervention.TopicLeave},
		{"", intervention.TopicInvalid},
		{"5", intervention.TopicInvalid},
		{"diets", intervention.TopicInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := intervention.ParseTopic(tt.input); got != tt.want {
				t.Errorf("ParseTopic(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTopicKeys(t *testing.T) {
	for _, topic := range intervention.Topics() {
		t.Run(topic.String(), func(t *testing.T) {
			if got := intervention.TopicFromKey(topic.Key()); got != topic {
				t.Errorf("TopicFromKey(%q) = %v, want %v", topic.Key(), got, topic)
			}
			if intervention.DefaultEducation(topic) == "" {
				t.Errorf("DefaultEducation(%v) is empty", topic)
			}
		})
	}

	if got := intervention.TopicFromKey("leave"); got != intervention.TopicInvalid {
		t.Errorf("TopicFromKey(leave) = %v, want Invalid", got)
	}
}
