package intervention

import "fmt"

// Prompt is the question presented to the patient for the current step.
// Hint lists the accepted answers.
type Prompt struct {
	Step Step   `json:"step"`
	Text string `json:"text"`
	Hint string `json:"hint,omitempty"`
}

const (
	hintYesNo      = "1 = yes, 2 = no"
	hintResponse   = "1 = yes, 2 = no, 3 = unable to register input"
	hintTopic      = "1 = diet, 2 = exercise, 3 = other tips, 4 = finished"
	hintIdentifier = "pairing code or patient identifier"
)

var (
	textIdentify    = "Hello, what is your identifier?"
	textChangeCheck = "Great, let's begin. Before we continue, have any changes been made to your blood pressure medications?"
	textInterest    = "Would you like more information about taking care of your high blood pressure?"
	textConfirm     = "You want to hear more about how to take care of high blood pressure. Correct?"
	textTopic       = "If you would like to hear more information about eating right, say 1; if you would like to hear about exercise, say 2; if you would like to hear more tips, say 3; if you are finished, say 4."
	textComplete    = "Thank you. This session is complete."
)

// Notices surfaced alongside a turn.
const (
	NoticeChangeReported = "Thank you for letting us know. A nurse will contact you about your medication changes."
	NoticeUnresolved     = "We could not register your answer. A nurse will contact you."
)

var defaultEducation = map[Topic]string{
	TopicDiet:      "A balanced diet includes vegetables, proteins, whole grains, and healthy oils which help to control high blood pressure. Also, cutting back the salt can decrease the blood pressure.",
	TopicExercise:  "Including regular exercise can help control high blood pressure. Walking is a low-impact exercise, but contact your doctor before starting a new workout plan.",
	TopicOtherTips: "Drinking alcohol and smoking cigarettes both increase your risk of high blood pressure. If you drink alcohol, limit the amount you drink to one serving size per day for women and two servings per day for men. For strategies to help you quit smoking, please get in touch with your doctor or nurse.",
}

// DefaultEducation returns the built-in content for topic, or "" for topics
// without content.
func DefaultEducation(topic Topic) string {
	return defaultEducation[topic]
}

func medicationQuestion(m Medication) string {
	frequency := m.Frequency
	if frequency == "" {
		frequency = DefaultFrequency
	}
	return fmt.Sprintf(
		"Okay, did you take your %s %s today? It is for your blood pressure and you take it %s a day.",
		m.Name, m.Dose, frequency,
	)
}

func medicationConfirm(m Medication, initial Response) string {
	switch initial {
	case ResponseYes:
		return fmt.Sprintf("You told me that you took your %s. Is this correct?", m.Name)
	case ResponseNo:
		return fmt.Sprintf("You told me that you have not taken your %s. Is this correct?", m.Name)
	default:
		return "You told me that you took your medication, or you told me that you have not taken your medication. Is this correct?"
	}
}

func medicationRepeat(m Medication) string {
	return fmt.Sprintf("Let's try again. Did you take your %s %s today?", m.Name, m.Dose)
}

// promptFor renders the prompt for the flow's current state.
func promptFor(flow *Flow) Prompt {
	st := flow.State
	switch st.Step {
	case StepIdentify:
		return Prompt{Step: st.Step, Text: textIdentify, Hint: hintIdentifier}
	case StepMedicationChangeCheck:
		return Prompt{Step: st.Step, Text: textChangeCheck, Hint: hintYesNo}
	case StepMedicationQuestions:
		med := flow.Medications[st.Index]
		switch st.Phase {
		case PhaseConfirm:
			return Prompt{Step: st.Step, Text: medicationConfirm(med, flow.initial), Hint: hintYesNo}
		case PhaseRepeat:
			return Prompt{Step: st.Step, Text: medicationRepeat(med), Hint: hintResponse}
		default:
			return Prompt{Step: st.Step, Text: medicationQuestion(med), Hint: hintResponse}
		}
	case StepEducationInterest:
		return Prompt{Step: st.Step, Text: textInterest, Hint: hintYesNo}
	case StepEducationConfirm:
		return Prompt{Step: st.Step, Text: textConfirm, Hint: hintYesNo}
	case StepEducationTopic:
		return Prompt{Step: st.Step, Text: textTopic, Hint: hintTopic}
	default:
		return Prompt{Step: StepFinalize, Text: textComplete}
	}
}
