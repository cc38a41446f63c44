package extract

import (
	"errors"
)

var (
	ErrUnsupportedType = errors.New("不支持的文件类型，仅支持 PDF 和 DOCX")
	ErrCorruptDocument = errors.New("文档已损坏或无法解析")
	ErrEmptyDocument   = errors.New("未能从文档中提取到文本")
)

// 支持的 MIME 类型
const (
	MIMEPDF  = "application/pdf"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Ext 根据 MIME 类型返回存储扩展名
func Ext(mimeType string) (string, bool) {
	switch mimeType {
	case MIMEPDF:
		return "pdf", true
	case MIMEDocx:
		return "docx", true
	default:
		return "", false
	}
}

// Text 按声明的 MIME 类型提取文档纯文本。
// 类型不在白名单内时不做任何解码尝试，直接返回 ErrUnsupportedType。
// 完全提取不到内容返回 ErrEmptyDocument；纯空白结果不算失败，
// 由调用方决定如何处理（部分扫描件没有文本层）。
func Text(data []byte, mimeType string) (string, error) {
	switch mimeType {
	case MIMEPDF:
		return pdfText(data)
	case MIMEDocx:
		return docxText(data)
	default:
		return "", ErrUnsupportedType
	}
}
