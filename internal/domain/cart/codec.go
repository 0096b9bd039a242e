package cart

import (
	"encoding/json"
	"strings"
)

// Encodeは明細を保存フォーマットのJSON配列にする。空カートは[]。
func Encode(lines []LineItem) ([]byte, error) {
	if lines == nil {
		lines = []LineItem{}
	}
	return json.Marshal(lines)
}

// Decodeは保存済みJSONを明細に戻す。
// 知らないフィールドは無視、desc/imageが無ければnil。
// idが空・数量0以下の行は捨て、同じidは数量を合算する（先に出た方のスナップショットを残す）。
func Decode(data []byte) ([]LineItem, error) {
	var raw []LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	lines := make([]LineItem, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, l := range raw {
		l.ProductID = strings.TrimSpace(l.ProductID)
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			lines[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(lines)
		lines = append(lines, l)
	}
	return lines, nil
}
