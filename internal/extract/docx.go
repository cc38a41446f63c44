package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// docxText 提取 DOCX 正文文本，按段落/表格拼接
func docxText(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(v.String())
			sb.WriteByte('\n')
		case *docx.Table:
			sb.WriteString(v.String())
			sb.WriteByte('\n')
		}
	}

	if sb.Len() == 0 {
		return "", ErrEmptyDocument
	}
	return sb.String(), nil
}
