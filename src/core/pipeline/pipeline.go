package pipeline

import (
	"context"
	"fmt"
	stdimage "image"
	"strings"

	img "petmood-go/src/core/image"
	"petmood-go/src/core/providers/detector"
	"petmood-go/src/core/providers/mood"
	"petmood-go/src/core/recommend"
	"petmood-go/src/core/types"
	"petmood-go/src/core/utils"

	"github.com/google/uuid"
)

// Moods 固定的情绪闭集，候选顺序与分类器返回的分布一一对应
var Moods = []string{"happy", "tired", "playful", "anxious"}

// DefaultPetLabels 默认允许的宠物标签
var DefaultPetLabels = []string{"dog", "cat"}

// CandidatePhrases 为每个情绪构造零样本候选描述
func CandidatePhrases() []string {
	phrases := make([]string, len(Moods))
	for i, m := range Moods {
		phrases[i] = fmt.Sprintf("a %s pet", m)
	}
	return phrases
}

// Result 单次分析结果。Found为false时其余字段无意义
type Result struct {
	Found          bool           `json:"found"`
	PetType        string         `json:"pet_type,omitempty"`
	Mood           string         `json:"mood,omitempty"`
	Confidence     float64        `json:"confidence,omitempty"`
	Box            types.Box      `json:"box"`
	Recommendation string         `json:"recommendation,omitempty"`
	Source         stdimage.Image `json:"-"` // 解码后的原图，供标注渲染使用
}

// Analyzer 检测到分类的流水线编排器，模型通过接口注入
type Analyzer struct {
	detector  detector.Provider
	mood      mood.Provider
	images    *img.Processor
	logger    *utils.Logger
	petLabels map[string]struct{}
}

// NewAnalyzer 创建分析器，labels为空时使用默认的dog/cat
func NewAnalyzer(det detector.Provider, cls mood.Provider, images *img.Processor, logger *utils.Logger, labels []string) *Analyzer {
	if len(labels) == 0 {
		labels = DefaultPetLabels
	}
	petLabels := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		petLabels[l] = struct{}{}
	}

	return &Analyzer{
		detector:  det,
		mood:      cls,
		images:    images,
		logger:    logger,
		petLabels: petLabels,
	}
}

// Analyze 对单张图片执行完整流水线：检测、选框、裁剪、情绪分类、建议查表
func (a *Analyzer) Analyze(ctx context.Context, imagePath string) (*Result, error) {
	runID := uuid.New().String()
	log := a.logger.WithTag(runID)

	loaded, err := a.loadImage(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	detections, err := a.detector.Detect(ctx, loaded.Data, loaded.Format)
	if err != nil {
		return nil, fmt.Errorf("目标检测失败: %v", err)
	}

	log.Debug("检测完成", map[string]interface{}{
		"path":       imagePath,
		"detections": len(detections),
	})

	selected, ok := a.selectPet(detections)
	if !ok {
		// 未检测到宠物不是错误，由调用方决定输出
		log.Info("未检测到宠物", map[string]interface{}{
			"path": imagePath,
		})
		return &Result{Found: false, Source: loaded.Image}, nil
	}

	cropped, err := a.images.Crop(loaded.Image, selected.Box)
	if err != nil {
		return nil, err
	}

	cropData, err := a.images.EncodeJPEG(cropped)
	if err != nil {
		return nil, err
	}

	moodResult, err := a.classifyMood(ctx, cropData)
	if err != nil {
		return nil, err
	}

	log.Info("分析完成", map[string]interface{}{
		"pet_type":   selected.Label,
		"mood":       moodResult.Mood,
		"confidence": moodResult.Confidence,
	})

	return &Result{
		Found:          true,
		PetType:        selected.Label,
		Mood:           moodResult.Mood,
		Confidence:     moodResult.Confidence,
		Box:            selected.Box,
		Recommendation: recommend.Advice(selected.Label, moodResult.Mood),
		Source:         loaded.Image,
	}, nil
}

// loadImage 按输入形式选择加载方式，http(s)地址走远程下载，其余按本地路径处理
func (a *Analyzer) loadImage(ctx context.Context, imagePath string) (*img.Loaded, error) {
	if strings.HasPrefix(imagePath, "http://") || strings.HasPrefix(imagePath, "https://") {
		return a.images.LoadURL(ctx, imagePath)
	}
	return a.images.LoadFile(imagePath)
}

// selectPet 按检测器返回顺序取第一个命中标签的检测框，不按置信度选取
func (a *Analyzer) selectPet(detections []types.Detection) (types.Detection, bool) {
	for _, d := range detections {
		if _, ok := a.petLabels[d.Label]; ok {
			return d, true
		}
	}
	return types.Detection{}, false
}

// classifyMood 对裁剪图执行零样本情绪分类，取概率最大的情绪
func (a *Analyzer) classifyMood(ctx context.Context, cropData []byte) (*types.MoodResult, error) {
	candidates := CandidatePhrases()

	probs, err := a.mood.Classify(ctx, cropData, "jpeg", candidates)
	if err != nil {
		return nil, fmt.Errorf("情绪分类失败: %v", err)
	}

	if len(probs) != len(Moods) {
		return nil, fmt.Errorf("概率分布长度不匹配: 期望%d个，实际%d个", len(Moods), len(probs))
	}

	best := mood.ArgMax(probs)
	return &types.MoodResult{
		Mood:       Moods[best],
		Confidence: probs[best],
	}, nil
}
