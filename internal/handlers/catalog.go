package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mvoronin/laptopshop/internal/logging"
	"github.com/mvoronin/laptopshop/internal/service/catalog"
	"github.com/mvoronin/laptopshop/internal/util"
)

type CatalogHandler struct {
	Svc *catalog.Service
}

// ListCatalog serves the storefront home: all categories plus a page of
// active items, optionally narrowed to one category slug.
func (h *CatalogHandler) ListCatalog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	slug := c.Param("slug")

	categories, err := h.Svc.Categories(ctx)
	if err != nil {
		l.Error("list_catalog_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load categories")
	}

	total, items, err := h.Svc.ActiveItems(ctx, slug, offset, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("list_catalog_failed", "status", 404, "reason", "unknown_category", "slug", slug)
			return echo.NewHTTPError(http.StatusNotFound, "category not found")
		}
		l.Error("list_catalog_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load items")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"categories": categories,
		"data":       items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHandler) ItemDetail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.item_detail")

	slug := c.Param("slug")
	detail, err := h.Svc.ItemBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			l.Warn("item_detail_failed", "status", 404, "reason", "unknown_item", "slug", slug)
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		l.Error("item_detail_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load item")
	}

	return c.JSON(http.StatusOK, detail)
}
