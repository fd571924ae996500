package image

import "image"

// Loaded 已加载并通过验证的图片
type Loaded struct {
	Image  image.Image // 解码后的图片
	Data   []byte      // 原始编码字节
	Format string      // 实际格式：jpeg, png, gif, webp
	Width  int         // 图片宽度
	Height int         // 图片高度
}

// ValidationResult 图片验证结果
type ValidationResult struct {
	IsValid      bool   // 是否有效
	Format       string // 实际格式
	Width        int    // 图片宽度
	Height       int    // 图片高度
	FileSize     int64  // 文件大小
	Error        error  // 错误信息
	SecurityRisk string // 安全风险描述
}

// Metrics 图片处理统计信息
type Metrics struct {
	TotalLoaded       int64 // 总加载数量
	URLDownloads      int64 // URL下载次数
	FailedValidations int64 // 验证失败次数
	CropsProduced     int64 // 裁剪产出次数
}
