package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/listing/domain"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/upload"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	multipartMemory = 32 << 20
	// every field full at its per-file limit, plus form overhead
	maxMultipartBytes = upload.MaxFilesPerField*(5+10+50)<<20 + 1<<20
)

var uploadFields = []upload.Kind{upload.KindImages, upload.KindDocuments, upload.KindVideos}

type ListingService interface {
	Create(ctx context.Context, actor *auth.Identity, listing *domain.Listing, files []upload.File) (*domain.Listing, error)
	Get(ctx context.Context, actor *auth.Identity, id string) (*domain.Listing, error)
	List(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Listing, int64, error)
	ListMine(ctx context.Context, actor *auth.Identity, filter domain.Filter) ([]*domain.Listing, int64, error)
	Update(ctx context.Context, actor *auth.Identity, id string, patch domain.ListingPatch) (*domain.Listing, error)
	Delete(ctx context.Context, actor *auth.Identity, id string) error
	AddMedia(ctx context.Context, actor *auth.Identity, id string, files []upload.File) (*domain.Listing, error)
	SetFeatured(ctx context.Context, actor *auth.Identity, id string, featured bool) (*domain.Listing, error)
	Verify(ctx context.Context, actor *auth.Identity, id string, verified bool, notes string) (*domain.Listing, error)
	Stats(ctx context.Context, actor *auth.Identity) (*domain.Stats, error)
}

type listingRequest struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	District           string   `json:"district"`
	Sector             string   `json:"sector"`
	Cell               string   `json:"cell"`
	Village            string   `json:"village"`
	PlotNumber         string   `json:"plot_number"`
	PriceAmount        float64  `json:"price_amount"`
	PriceCurrency      string   `json:"price_currency"`
	PriceNegotiable    bool     `json:"price_negotiable"`
	LandSizeValue      float64  `json:"land_size_value"`
	LandSizeUnit       string   `json:"land_size_unit"`
	LandType           string   `json:"land_type"`
	LandownerName      string   `json:"landowner_name"`
	LandownerPhone     string   `json:"landowner_phone" validate:"omitempty,phone"`
	LandownerIDNumber  string   `json:"landowner_id_number"`
	LandownerEmail     string   `json:"landowner_email" validate:"omitempty,email"`
	LandTitleAvailable bool     `json:"land_title_available"`
	Amenities          []string `json:"amenities"`
	Infrastructure     []string `json:"infrastructure"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Status             string   `json:"status"`
}

func (req listingRequest) toDomain() *domain.Listing {
	return &domain.Listing{
		Title:              req.Title,
		Description:        req.Description,
		District:           req.District,
		Sector:             req.Sector,
		Cell:               req.Cell,
		Village:            req.Village,
		PlotNumber:         req.PlotNumber,
		PriceAmount:        req.PriceAmount,
		PriceCurrency:      domain.Currency(strings.ToUpper(req.PriceCurrency)),
		PriceNegotiable:    req.PriceNegotiable,
		LandSizeValue:      req.LandSizeValue,
		LandSizeUnit:       domain.SizeUnit(req.LandSizeUnit),
		LandType:           domain.LandType(req.LandType),
		LandownerName:      req.LandownerName,
		LandownerPhone:     req.LandownerPhone,
		LandownerIDNumber:  req.LandownerIDNumber,
		LandownerEmail:     req.LandownerEmail,
		LandTitleAvailable: req.LandTitleAvailable,
		Amenities:          req.Amenities,
		Infrastructure:     req.Infrastructure,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Status:             domain.ListingStatus(req.Status),
	}
}

type listingPatchRequest struct {
	Title              *string   `json:"title"`
	Description        *string   `json:"description"`
	District           *string   `json:"district"`
	Sector             *string   `json:"sector"`
	Cell               *string   `json:"cell"`
	Village            *string   `json:"village"`
	PlotNumber         *string   `json:"plot_number"`
	PriceAmount        *float64  `json:"price_amount"`
	PriceCurrency      *string   `json:"price_currency"`
	PriceNegotiable    *bool     `json:"price_negotiable"`
	LandSizeValue      *float64  `json:"land_size_value"`
	LandSizeUnit       *string   `json:"land_size_unit"`
	LandType           *string   `json:"land_type"`
	LandownerName      *string   `json:"landowner_name"`
	LandownerPhone     *string   `json:"landowner_phone" validate:"omitempty,phone"`
	LandownerIDNumber  *string   `json:"landowner_id_number"`
	LandownerEmail     *string   `json:"landowner_email" validate:"omitempty,email"`
	LandTitleAvailable *bool     `json:"land_title_available"`
	Amenities          *[]string `json:"amenities"`
	Infrastructure     *[]string `json:"infrastructure"`
	Latitude           *float64  `json:"latitude"`
	Longitude          *float64  `json:"longitude"`
	Status             *string   `json:"status"`
}

func (req listingPatchRequest) toDomain() domain.ListingPatch {
	p := domain.ListingPatch{
		Title:              req.Title,
		Description:        req.Description,
		District:           req.District,
		Sector:             req.Sector,
		Cell:               req.Cell,
		Village:            req.Village,
		PlotNumber:         req.PlotNumber,
		PriceAmount:        req.PriceAmount,
		PriceNegotiable:    req.PriceNegotiable,
		LandSizeValue:      req.LandSizeValue,
		LandownerName:      req.LandownerName,
		LandownerPhone:     req.LandownerPhone,
		LandownerIDNumber:  req.LandownerIDNumber,
		LandownerEmail:     req.LandownerEmail,
		LandTitleAvailable: req.LandTitleAvailable,
		Amenities:          req.Amenities,
		Infrastructure:     req.Infrastructure,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
	}
	if req.PriceCurrency != nil {
		c := domain.Currency(strings.ToUpper(*req.PriceCurrency))
		p.PriceCurrency = &c
	}
	if req.LandSizeUnit != nil {
		u := domain.SizeUnit(*req.LandSizeUnit)
		p.LandSizeUnit = &u
	}
	if req.LandType != nil {
		t := domain.LandType(*req.LandType)
		p.LandType = &t
	}
	if req.Status != nil {
		s := domain.ListingStatus(*req.Status)
		p.Status = &s
	}
	return p
}

type featuredRequest struct {
	Featured *bool `json:"featured" validate:"required"`
}

type verifyListingRequest struct {
	Verified          *bool  `json:"verified"`
	VerificationNotes string `json:"verification_notes" validate:"max=1000"`
}

type ListingHandler struct {
	listings ListingService
	logger   *logger.Logger
}

func NewListingHandler(listings ListingService, log *logger.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, logger: log.Named("ListingHandler")}
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := listingFilter(w, r)
	if !ok {
		return
	}
	listings, total, err := h.listings.List(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondPage(w, listings, filter, total)
}

func (h *ListingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	filter, ok := listingFilter(w, r)
	if !ok {
		return
	}
	listings, total, err := h.listings.ListMine(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.respondPage(w, listings, filter, total)
}

func (h *ListingHandler) respondPage(w http.ResponseWriter, listings []*domain.Listing, filter domain.Filter, total int64) {
	filter.Normalize()
	if listings == nil {
		listings = []*domain.Listing{}
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{
		"listings":   listings,
		"pagination": response.NewPagination(filter.Page, filter.Limit, total),
	})
}

// listingFilter parses the query string of the listing search.
func listingFilter(w http.ResponseWriter, r *http.Request) (domain.Filter, bool) {
	q := newQuery(r)
	f := domain.Filter{
		Search:    q.str("search"),
		LandType:  domain.LandType(q.str("land_type")),
		District:  q.str("district"),
		Sector:    q.str("sector"),
		MinPrice:  q.float("min_price"),
		MaxPrice:  q.float("max_price"),
		MinSize:   q.float("min_size"),
		MaxSize:   q.float("max_size"),
		Verified:  q.bool("verified"),
		Featured:  q.bool("featured"),
		Page:      q.page(),
		Limit:     q.positiveInt("limit", domain.DefaultPageLimit),
		SortBy:    q.str("sort_by"),
		SortOrder: strings.ToLower(q.str("sort_order")),
	}
	if f.Limit > domain.MaxPageLimit {
		q.errs["limit"] = "must be between 1 and " + strconv.Itoa(domain.MaxPageLimit)
	}
	if f.SortBy != "" && !domain.IsSortable(f.SortBy) {
		q.errs["sort_by"] = "must be created_at, price_amount, land_size_value, views or title"
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		q.errs["sort_order"] = "must be asc or desc"
	}
	if s := q.str("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Statuses = append(f.Statuses, domain.ListingStatus(part))
			}
		}
	}
	return f, q.ok(w)
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.Get(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{"listing": listing})
}

// Create accepts a JSON body or a multipart form carrying the listing either
// as a "data" JSON field or as plain form fields, plus optional files.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	var files []upload.File

	if isMultipart(r) {
		form, ok := h.parseMultipart(w, r)
		if !ok {
			return
		}
		defer form.RemoveAll()

		if err := decodeListingForm(form, &req); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidPayload, "Invalid listing data: "+err.Error(), nil)
			return
		}
		if !validateStruct(w, &req) {
			return
		}
		var closeAll func()
		var err error
		files, closeAll, err = formFiles(form)
		if err != nil {
			respondError(w, r, h.logger, err)
			return
		}
		defer closeAll()
	} else if !decodeJSON(w, r, &req) {
		return
	}

	listing, err := h.listings.Create(r.Context(), auth.IdentityFromContext(r.Context()), req.toDomain(), files)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusCreated, "Land listing created successfully", map[string]interface{}{"listing": listing})
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req listingPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	listing, err := h.listings.Update(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), req.toDomain())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Land listing updated successfully", map[string]interface{}{"listing": listing})
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.Delete(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Land listing deleted successfully", nil)
}

func (h *ListingHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidPayload, "Expected a multipart/form-data upload", nil)
		return
	}
	form, ok := h.parseMultipart(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	files, closeAll, err := formFiles(form)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer closeAll()
	if len(files) == 0 {
		response.Error(w, http.StatusBadRequest, response.CodeValidation, "No files uploaded", nil)
		return
	}

	listing, err := h.listings.AddMedia(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), files)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "Files uploaded successfully", map[string]interface{}{"listing": listing})
}

func (h *ListingHandler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	var req featuredRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	listing, err := h.listings.SetFeatured(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), *req.Featured)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	msg := "Listing removed from featured"
	if listing.Featured {
		msg = "Listing featured successfully"
	}
	response.JSON(w, http.StatusOK, msg, map[string]interface{}{"listing": listing})
}

func (h *ListingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}
	listing, err := h.listings.Verify(r.Context(), auth.IdentityFromContext(r.Context()), chi.URLParam(r, "id"), verified, req.VerificationNotes)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	msg := "Listing verification removed"
	if verified {
		msg = "Listing verified successfully"
	}
	response.JSON(w, http.StatusOK, msg, map[string]interface{}{"listing": listing})
}

func (h *ListingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.listings.Stats(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, "", map[string]interface{}{"stats": stats})
}

func (h *ListingHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "Upload too large", nil)
			return nil, false
		}
		h.logger.Debug("Rejected multipart body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, response.CodeInvalidPayload, "Invalid multipart form", nil)
		return nil, false
	}
	return r.MultipartForm, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

var (
	numericFormFields = map[string]bool{"price_amount": true, "land_size_value": true, "latitude": true, "longitude": true}
	boolFormFields    = map[string]bool{"price_negotiable": true, "land_title_available": true}
	listFormFields    = map[string]bool{"amenities": true, "infrastructure": true}
)

// decodeListingForm reads the listing from the "data" field, or failing
// that from individual form fields converted to their JSON types.
func decodeListingForm(form *multipart.Form, dst *listingRequest) error {
	if data := form.Value["data"]; len(data) > 0 && strings.TrimSpace(data[0]) != "" {
		return json.Unmarshal([]byte(data[0]), dst)
	}

	doc := make(map[string]interface{}, len(form.Value))
	for name, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		v := strings.TrimSpace(values[0])
		switch {
		case listFormFields[name]:
			doc[name] = formList(values)
		case numericFormFields[name]:
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.New(name + " must be a number")
			}
			doc[name] = f
		case boolFormFields[name]:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.New(name + " must be true or false")
			}
			doc[name] = b
		default:
			doc[name] = v
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// formList accepts repeated fields, a JSON array or a comma separated value.
func formList(values []string) []string {
	if len(values) == 1 {
		v := strings.TrimSpace(values[0])
		var arr []string
		if strings.HasPrefix(v, "[") && json.Unmarshal([]byte(v), &arr) == nil {
			return arr
		}
		values = strings.Split(v, ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// formFiles opens the uploaded files of the known upload fields. The
// returned func closes them.
func formFiles(form *multipart.Form) ([]upload.File, func(), error) {
	var files []upload.File
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for name, headers := range form.File {
		if !knownUploadField(name) && len(headers) > 0 {
			closeAll()
			return nil, func() {}, &upload.Error{FileName: headers[0].Filename, Err: upload.ErrUnknownKind, Detail: name}
		}
	}
	for _, kind := range uploadFields {
		headers := form.File[string(kind)]
		if len(headers) > upload.MaxFilesPerField {
			closeAll()
			return nil, func() {}, &upload.Error{FileName: string(kind), Err: upload.ErrTooManyFiles,
				Detail: "at most " + strconv.Itoa(upload.MaxFilesPerField) + " files"}
		}
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				closeAll()
				return nil, func() {}, err
			}
			closers = append(closers, f)
			files = append(files, upload.File{
				Kind:         kind,
				FileName:     fh.Filename,
				DeclaredType: fh.Header.Get("Content-Type"),
				Size:         fh.Size,
				Content:      f,
			})
		}
	}
	return files, closeAll, nil
}

func knownUploadField(name string) bool {
	for _, k := range uploadFields {
		if string(k) == name {
			return true
		}
	}
	return false
}
