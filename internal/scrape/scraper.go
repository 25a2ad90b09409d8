package scrape

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/obscurecore/eduscan/internal/institution"
	"github.com/obscurecore/eduscan/internal/metrics"
)

// Request-level failures: the caller's input or the source itself was
// unusable. Anything else that escapes the walk is wrapped in
// ErrInternal and aborts the run.
var (
	ErrSourceUnreachable   = errors.New("не удалось загрузить главную страницу")
	ErrNoDistricts         = errors.New("не удалось найти ссылки на районы")
	ErrNoMatchingDistricts = errors.New("указанные районы не найдены в целевых районах")
	ErrInternal            = errors.New("внутренняя ошибка сервера")
)

// category pairs a navigation label with the record type its listings
// resolve to.
type category struct {
	Label string
	Type  institution.Type
}

var categories = []category{
	{Label: categorySchools, Type: institution.TypeSchool},
	{Label: categoryPreschool, Type: institution.TypeKindergarten},
}

// Scraper drives the three-level walk over the source site and keeps
// the record store deduplicated by institution id.
type Scraper struct {
	fetcher institution.Fetcher
	store   institution.Store
	baseURL string
	logger  *zap.Logger
}

// New constructs a Scraper rooted at baseURL.
func New(fetcher institution.Fetcher, store institution.Store, baseURL string, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		fetcher: fetcher,
		store:   store,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Run executes one crawl. With refresh=false it skips the walk and
// returns the persisted catalog, filtered by district codes when a
// filter is given. An empty or all-unknown filter means "everything".
func (s *Scraper) Run(ctx context.Context, refresh bool, districtCodes []string) ([]institution.Record, institution.RunSummary, error) {
	var summary institution.RunSummary

	if err := s.store.EnsureInitialized(); err != nil {
		return nil, summary, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	filter := institution.NamesFromCodes(districtCodes)

	if refresh {
		if err := s.refresh(ctx, districtCodes, filter, &summary); err != nil {
			metrics.ObserveScrapeRun("failed")
			return nil, summary, err
		}
		metrics.ObserveScrapeRun("succeeded")
	}

	records, err := s.store.ReadAll()
	if err != nil {
		return nil, summary, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if len(filter) > 0 {
		records = filterByDistrict(records, filter)
	}
	return records, summary, nil
}

func (s *Scraper) refresh(ctx context.Context, districtCodes, filter []string, summary *institution.RunSummary) error {
	mainDoc, err := s.fetch(ctx, s.baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}

	districtLinks := ExtractDistrictLinks(mainDoc)
	if len(districtLinks) == 0 {
		return ErrNoDistricts
	}

	// Effective set = fixed target districts ∩ requested filter. A
	// request naming only unknown districts is a client error, not an
	// unfiltered crawl.
	selected := filter
	if len(selected) == 0 {
		if len(districtCodes) > 0 {
			return ErrNoMatchingDistricts
		}
		selected = institution.DistrictNames()
	}

	for _, district := range selected {
		url, ok := districtLinks[district]
		if !ok {
			s.logger.Warn("district link not discovered", zap.String("district", district))
			summary.Failed++
			continue
		}
		if err := s.processDistrict(ctx, district, url, summary); err != nil {
			return err
		}
	}
	return nil
}

// processDistrict walks both category branches of one district. A
// failed district or category fetch skips only that subtree.
func (s *Scraper) processDistrict(ctx context.Context, district, districtURL string, summary *institution.RunSummary) error {
	s.logger.Info("processing district", zap.String("district", district))
	doc, err := s.fetch(ctx, districtURL)
	if err != nil {
		s.logger.Warn("district page fetch failed", zap.String("district", district), zap.Error(err))
		summary.Failed++
		return nil
	}

	for _, cat := range categories {
		if err := s.processCategory(ctx, district, doc, cat, summary); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scraper) processCategory(
	ctx context.Context,
	district string,
	districtDoc *goquery.Document,
	cat category,
	summary *institution.RunSummary,
) error {
	categoryURL, ok := ExtractCategoryLink(districtDoc, cat.Label)
	if !ok {
		s.logger.Warn("category link not found",
			zap.String("district", district),
			zap.String("category", cat.Label),
		)
		summary.Failed++
		return nil
	}

	categoryDoc, err := s.fetch(ctx, categoryURL)
	if err != nil {
		s.logger.Warn("category page fetch failed",
			zap.String("district", district),
			zap.String("category", cat.Label),
			zap.Error(err),
		)
		summary.Failed++
		return nil
	}

	for _, listingURL := range ExtractListingLinks(categoryDoc, string(cat.Type)) {
		if err := s.processListing(ctx, district, cat.Type, listingURL, summary); err != nil {
			return err
		}
	}
	return nil
}

// processListing appends a new record for a listing URL unless its id
// is already known. Store failures are fatal to the run; a failed
// detail fetch skips only this listing.
func (s *Scraper) processListing(
	ctx context.Context,
	district string,
	typ institution.Type,
	listingURL string,
	summary *institution.RunSummary,
) error {
	id := InstitutionID(listingURL)
	known, err := s.store.Exists(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if known {
		summary.Skipped++
		metrics.ObserveInstitution("skipped")
		return nil
	}

	doc, err := s.fetch(ctx, listingURL)
	if err != nil {
		s.logger.Warn("detail page fetch failed", zap.String("url", listingURL), zap.Error(err))
		summary.Failed++
		metrics.ObserveInstitution("failed")
		return nil
	}

	detail := ExtractDetail(doc)
	rec := institution.Record{
		ID:            id,
		Type:          typ,
		Number:        InstitutionNumber(detail.ShortName),
		StudentsCount: strconv.Itoa(StudentCount(detail.Enrollment)),
		District:      district,
		URL:           listingURL,
	}
	if err := s.store.Append(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	summary.Discovered++
	metrics.ObserveInstitution("discovered")
	s.logger.Info("institution added",
		zap.String("id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("number", rec.Number),
	)
	return nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObservePageFetch("error")
		return nil, err
	}
	metrics.ObservePageFetch("ok")
	return doc, nil
}

func filterByDistrict(records []institution.Record, names []string) []institution.Record {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	filtered := make([]institution.Record, 0, len(records))
	for _, rec := range records {
		if wanted[rec.District] {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
