package cart

// カートの明細。商品ごとに1つ。
// name/price/desc/imageは最初に追加した時点のスナップショット。
// JSONタグはそのまま保存フォーマット（[{id,name,price,desc,image,quantity}]）になる。
type LineItem struct {
	ProductID   string  `json:"id"`
	Name        string  `json:"name"`
	UnitPrice   int64   `json:"price"`
	Description *string `json:"desc"`
	ImageRef    *string `json:"image"`
	Quantity    int64   `json:"quantity"`
}

// カートに入れる商品の情報
type ProductRef struct {
	ID          string
	Name        string
	Price       int64
	Description *string
	Image       *string
}

// ある時点のカートの中身と集計
type Snapshot struct {
	Lines      []LineItem `json:"items"`
	TotalItems int64      `json:"total_items"`
	TotalPrice int64      `json:"total_price"`
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

func totals(lines []LineItem) (items int64, price int64) {
	for _, l := range lines {
		items += l.Quantity
		price += l.Quantity * l.UnitPrice
	}
	return items, price
}

func copyLines(lines []LineItem) []LineItem {
	out := make([]LineItem, len(lines))
	for i, l := range lines {
		out[i] = l
		out[i].Description = copyString(l.Description)
		out[i].ImageRef = copyString(l.ImageRef)
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
