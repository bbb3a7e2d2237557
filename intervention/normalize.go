package intervention

import (
	"slices"
	"strings"
)

// YesNo is the result of normalizing a plain yes/no answer.
type YesNo int

const (
	YesNoInvalid YesNo = iota
	Yes
	No
)

func (v YesNo) String() string {
	switch v {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "invalid"
	}
}

// Response is the result of normalizing an answer that may also report the
// input as unregistered.
type Response int

const (
	ResponseInvalid Response = iota
	ResponseYes
	ResponseNo
	ResponseUnregistered
)

func (r Response) String() string {
	switch r {
	case ResponseYes:
		return "yes"
	case ResponseNo:
		return "no"
	case ResponseUnregistered:
		return "unregistered"
	default:
		return "invalid"
	}
}

// Topic is an educational content selection.
type Topic int

const (
	TopicInvalid Topic = iota
	TopicDiet
	TopicExercise
	TopicOtherTips
	TopicLeave
)

// Key returns the stable identifier used in storage and URLs. Leave and
// Invalid have no key.
func (t Topic) Key() string {
	switch t {
	case TopicDiet:
		return "diet"
	case TopicExercise:
		return "exercise"
	case TopicOtherTips:
		return "other_tips"
	default:
		return ""
	}
}

func (t Topic) String() string {
	switch t {
	case TopicDiet:
		return "Diet"
	case TopicExercise:
		return "Exercise"
	case TopicOtherTips:
		return "Other tips"
	case TopicLeave:
		return "Leave"
	default:
		return "Invalid"
	}
}

// Topics lists the selectable content topics in menu order.
func Topics() []Topic {
	return []Topic{TopicDiet, TopicExercise, TopicOtherTips}
}

// TopicFromKey resolves a stored topic key. Unknown keys return TopicInvalid.
func TopicFromKey(key string) Topic {
	for _, t := range Topics() {
		if t.Key() == key {
			return t
		}
	}
	return TopicInvalid
}

var (
	yesTokens          = []string{"1", "yes", "y"}
	noTokens           = []string{"2", "no", "n"}
	unregisteredTokens = []string{"3", "unable", "unable to register input", "unregistered"}

	topicTokens = map[string]Topic{
		"1":           TopicDiet,
		"diet":        TopicDiet,
		"2":           TopicExercise,
		"exercise":    TopicExercise,
		"3":           TopicOtherTips,
		"other tips":  TopicOtherTips,
		"other":       TopicOtherTips,
		"tips":        TopicOtherTips,
		"4":           TopicLeave,
		"leave":       TopicLeave,
		"leave now":   TopicLeave,
		"no response": TopicLeave,
	}
)

// ParseYesNo maps {1, yes, y} to Yes and {2, no, n} to No. Matching is exact
// on the trimmed, lower-cased text.
func ParseYesNo(text string) YesNo {
	token := normalize(text)
	switch {
	case slices.Contains(yesTokens, token):
		return Yes
	case slices.Contains(noTokens, token):
		return No
	default:
		return YesNoInvalid
	}
}

// ParseYesNoUnregistered extends ParseYesNo with
// {3, unable, unable to register input, unregistered}.
func ParseYesNoUnregistered(text string) Response {
	token := normalize(text)
	switch {
	case slices.Contains(yesTokens, token):
		return ResponseYes
	case slices.Contains(noTokens, token):
		return ResponseNo
	case slices.Contains(unregisteredTokens, token):
		return ResponseUnregistered
	default:
		return ResponseInvalid
	}
}

// ParseTopic maps menu choices to a Topic.
func ParseTopic(text string) Topic {
	if t, ok := topicTokens[normalize(text)]; ok {
		return t
	}
	return TopicInvalid
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
