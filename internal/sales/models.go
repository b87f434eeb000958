package sales

import "time"

// Sale: satu baris ledger. Immutable setelah insert; unit_cents adalah
// snapshot harga produk saat transaksi, total_cents dihitung sekali.
type Sale struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	SoldBy     string    `json:"sold_by"`
	Quantity   int       `json:"quantity"`
	UnitCents  int64     `json:"unit_cents"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Detail: Sale + hasil join produk/user untuk response (read-back join,
// bukan denormalisasi). List hanya mengisi nama+deskripsi produk;
// Get mengisi semuanya.
type Detail struct {
	Sale
	ProductName        string `json:"product_name,omitempty"`
	ProductDescription string `json:"product_description,omitempty"`
	ProductPriceCents  *int64 `json:"product_price_cents,omitempty"`
	SellerName         string `json:"seller_name,omitempty"`
	SellerEmail        string `json:"seller_email,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
