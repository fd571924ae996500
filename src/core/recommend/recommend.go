package recommend

// Key 宠物类型和情绪的组合
type Key struct {
	PetType string
	Mood    string
}

// DefaultAdvice 未覆盖组合的兜底建议
const DefaultAdvice = "Keep monitoring your pet."

// 宠物类型×情绪到建议的映射
var adviceRules = map[Key]string{
	{"dog", "happy"}:   "Take your dog for a walk or play fetch 🎾",
	{"dog", "tired"}:   "Let your dog rest and provide fresh water 💧",
	{"dog", "playful"}: "Engage with toys to burn energy 🐕",
	{"dog", "anxious"}: "Check if something is stressing your dog 😟",
	{"cat", "happy"}:   "Give your cat some toys or treats 🐱✨",
	{"cat", "tired"}:   "Let your cat nap in a quiet spot 💤",
	{"cat", "playful"}: "Play with a laser pointer or string toy 🎯",
	{"cat", "anxious"}: "Make sure the environment is calm 🐱😟",
}

// Advice 根据宠物类型和情绪返回建议，未知组合返回兜底建议
func Advice(petType, mood string) string {
	if advice, ok := adviceRules[Key{PetType: petType, Mood: mood}]; ok {
		return advice
	}
	return DefaultAdvice
}
