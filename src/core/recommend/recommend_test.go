package recommend

import "testing"

func TestAdvice(t *testing.T) {
	tests := []struct {
		name     string
		petType  string
		mood     string
		expected string
	}{
		{
			name:     "狗开心",
			petType:  "dog",
			mood:     "happy",
			expected: "Take your dog for a walk or play fetch 🎾",
		},
		{
			name:     "狗疲惫",
			petType:  "dog",
			mood:     "tired",
			expected: "Let your dog rest and provide fresh water 💧",
		},
		{
			name:     "狗爱玩",
			petType:  "dog",
			mood:     "playful",
			expected: "Engage with toys to burn energy 🐕",
		},
		{
			name:     "狗焦虑",
			petType:  "dog",
			mood:     "anxious",
			expected: "Check if something is stressing your dog 😟",
		},
		{
			name:     "猫开心",
			petType:  "cat",
			mood:     "happy",
			expected: "Give your cat some toys or treats 🐱✨",
		},
		{
			name:     "猫疲惫",
			petType:  "cat",
			mood:     "tired",
			expected: "Let your cat nap in a quiet spot 💤",
		},
		{
			name:     "猫爱玩",
			petType:  "cat",
			mood:     "playful",
			expected: "Play with a laser pointer or string toy 🎯",
		},
		{
			name:     "猫焦虑",
			petType:  "cat",
			mood:     "anxious",
			expected: "Make sure the environment is calm 🐱😟",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Advice(tt.petType, tt.mood)
			if result != tt.expected {
				t.Errorf("Advice(%q, %q) = %q, want %q", tt.petType, tt.mood, result, tt.expected)
			}
		})
	}
}

func TestAdvice_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		petType string
		mood    string
	}{
		{name: "未知宠物类型", petType: "bird", mood: "happy"},
		{name: "未知情绪", petType: "dog", mood: "angry"},
		{name: "全部未知", petType: "fish", mood: "confused"},
		{name: "空输入", petType: "", mood: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Advice(tt.petType, tt.mood)
			if result != DefaultAdvice {
				t.Errorf("Advice(%q, %q) = %q, want %q", tt.petType, tt.mood, result, DefaultAdvice)
			}
		})
	}
}

func TestAdvice_Total(t *testing.T) {
	// 所有合法组合都必须返回非空建议
	for _, petType := range []string{"dog", "cat"} {
		for _, mood := range []string{"happy", "tired", "playful", "anxious"} {
			if Advice(petType, mood) == "" {
				t.Errorf("Advice(%q, %q) 返回了空字符串", petType, mood)
			}
		}
	}
}
