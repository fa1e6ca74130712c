package orchestrator

// groundingExercises are the fixed calming texts offered at the grounding
// tier. Nothing here is generated; the texts ship with the binary.
var groundingExercises = []string{
	"Let's pause for a breath together. Breathe in slowly for a count of four, hold for four, and let it out for a count of six. Twice more, at your own pace.",
	"Take a moment to feel your feet on the floor. Notice the weight of your body where it rests, and let your shoulders soften a little.",
	"Look around slowly and quietly name three things you can see, two things you can hear, and one thing you can feel against your skin.",
	"Place a hand wherever it feels steadying, perhaps your chest or your knee. Notice the warmth of that contact for a few unhurried breaths.",
}

// exerciseFor picks the exercise for the nth grounding of a session,
// deterministically, cycling through the fixed list.
func exerciseFor(groundingCount int) string {
	if groundingCount < 1 {
		groundingCount = 1
	}
	return groundingExercises[(groundingCount-1)%len(groundingExercises)]
}
