package knowledge

import "github.com/medicall/agent/internal/dialogue"

// Default returns a small built-in knowledge base so the service can run
// without external data files. Production deployments load the full table
// with Load.
func Default() *Base {
	b := New([]Entry{
		{
			Name:           "stroke",
			EmergencyLevel: dialogue.LevelUrgent,
			Symptoms:       []string{"facial drooping", "slurred speech", "one-sided weakness", "sudden severe headache"},
			Escalation: map[dialogue.EmergencyLevel][]string{
				dialogue.LevelUrgent: {"loss of consciousness"},
			},
		},
		{
			Name:           "heart attack",
			EmergencyLevel: dialogue.LevelUrgent,
			Symptoms:       []string{"chest pain", "shortness of breath", "pain radiating to the left arm", "cold sweat"},
			Escalation: map[dialogue.EmergencyLevel][]string{
				dialogue.LevelUrgent: {"loss of consciousness", "no breathing"},
			},
		},
		{
			Name:           "choking",
			EmergencyLevel: dialogue.LevelEmergency,
			Symptoms:       []string{"cannot speak", "clutching the throat", "wheezing", "bluish lips"},
			Escalation: map[dialogue.EmergencyLevel][]string{
				dialogue.LevelUrgent: {"loss of consciousness", "no airflow at all"},
			},
		},
		{
			Name:           "fracture",
			EmergencyLevel: dialogue.LevelEmergency,
			Symptoms:       []string{"deformity", "severe localized pain", "swelling", "inability to bear weight"},
			Escalation: map[dialogue.EmergencyLevel][]string{
				dialogue.LevelUrgent:    {"bone visible through the skin"},
				dialogue.LevelEmergency: {"heavy bleeding"},
			},
		},
		{
			Name:           "sprain",
			EmergencyLevel: dialogue.LevelNonEmergency,
			Symptoms:       []string{"joint pain after twisting", "mild swelling", "tenderness"},
		},
	})

	b.AddFirstAidDoc("choking", `[warning]
Do not sweep the mouth blindly with your fingers; this can push the object deeper.
Do not give the patient anything to drink.

If the patient can cough, encourage them to keep coughing forcefully.

If the patient cannot cough, speak, or breathe, stand behind them and give
abdominal thrusts: place a fist just above the navel, grasp it with the
other hand, and pull sharply inward and upward. Repeat until the object is
expelled.

If the patient loses consciousness, lower them to the ground, call for a
defibrillator, and begin chest compressions.`)

	b.AddFirstAidDoc("heart attack", `Help the patient into a comfortable half-sitting position and loosen tight
clothing. Keep them still; any exertion increases the heart's workload.

If the patient is conscious and not allergic, they may chew one adult
aspirin.

If the patient becomes unresponsive and stops breathing normally, begin
chest compressions at 100 to 120 per minute and do not stop until
responders arrive.

[warning]
Do not let the patient walk around or drive themselves to a hospital.
Do not give food or water.`)

	b.AddFirstAidDoc("stroke", `[warning]
Note the exact time symptoms started; treatment decisions depend on it.
Never give food, water, or medication by mouth.

Lay the patient on their side with the head slightly raised. Loosen tight
clothing around the neck.

If the patient vomits, turn the head to the side to keep the airway clear.

If the patient stops breathing, begin chest compressions immediately.`)

	return b
}
