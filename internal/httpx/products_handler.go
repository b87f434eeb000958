package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-sales-ledger.git/internal/products"
)

type ProductsHandler struct {
	Repo *products.Repo
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
	r.Get("/products/{id}", h.get)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

// parsePage: default page=1 limit=10, limit max 100.
func parsePage(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePage(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, total, err := h.Repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items, "meta": pageMeta(page, limit, total)})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in products.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Name == "" || in.PriceCents < 0 || in.Stock < 0 {
		errJSON(w, http.StatusBadRequest, "name required, price and stock must be non-negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.Create(ctx, in)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeProductErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var in products.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.PriceCents != nil && *in.PriceCents < 0 {
		errJSON(w, http.StatusBadRequest, "price must be non-negative")
		return
	}
	if in.Stock != nil && *in.Stock < 0 {
		errJSON(w, http.StatusBadRequest, "stock must be non-negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		writeProductErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		writeProductErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func writeProductErr(w http.ResponseWriter, err error) {
	if errors.Is(err, products.ErrNotFound) {
		errJSON(w, http.StatusNotFound, err.Error())
		return
	}
	errJSON(w, http.StatusInternalServerError, "internal error")
}
