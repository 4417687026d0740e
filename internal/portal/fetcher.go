package portal

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jswiatek/ekw-sourcer/internal/register"
)

// Element selectors and text markers of the portal search flow.
const (
	selDepartmentInput = "#kodWydzialuInput"
	selSequenceInput   = "#numerKsiegiWieczystej"
	selControlInput    = "#cyfraKontrolna"
	selSearchButton    = "#wyszukaj"
	selControlRejected = `#cyfraKontrolna--cyfra-kontrolna`
	selResultContent   = "#content-wrapper"
	selPrintButton     = "#przyciskWydrukZwykly"
	selSectionContent  = "#contentDzialu"

	markerResultPage   = "Wynik wyszukiwania księgi wieczystej"
	markerBookNotFound = "nie została odnaleziona"
)

// BookFetcher implements register.Fetcher against the live portal via a
// browser session.
type BookFetcher struct {
	session register.Session
	baseURL string
	logger  *zap.Logger
}

// NewBookFetcher wires a fetcher to one browser session.
func NewBookFetcher(session register.Session, baseURL string, logger *zap.Logger) *BookFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookFetcher{
		session: session,
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchBook runs the full search flow for one identifier: open the form,
// enter the identification, submit and parse the result. Terminal outcomes
// are register.ErrControlRejected and register.ErrBookNotFound; any other
// error is transient and may be retried by the caller.
func (f *BookFetcher) FetchBook(ctx context.Context, id register.BookID) (register.EvidenceRecord, error) {
	if err := f.enterIdentification(ctx, id); err != nil {
		return register.EvidenceRecord{}, err
	}

	rejected, err := f.session.Visible(ctx, selControlRejected)
	if err != nil {
		return register.EvidenceRecord{}, fmt.Errorf("check control digit rejection: %w", err)
	}
	if rejected {
		return register.EvidenceRecord{}, register.ErrControlRejected
	}

	body, err := f.session.Text(ctx, "body")
	if err != nil {
		return register.EvidenceRecord{}, fmt.Errorf("read result page: %w", err)
	}
	if strings.Contains(body, markerBookNotFound) {
		return register.EvidenceRecord{}, register.ErrBookNotFound
	}
	if !strings.Contains(body, markerResultPage) {
		return register.EvidenceRecord{}, fmt.Errorf("result page for %s did not settle", id)
	}

	return f.readBook(ctx, id)
}

func (f *BookFetcher) enterIdentification(ctx context.Context, id register.BookID) error {
	if err := f.session.Navigate(ctx, f.baseURL); err != nil {
		return fmt.Errorf("open search form: %w", err)
	}
	fields := []struct {
		selector string
		value    string
	}{
		{selDepartmentInput, id.Department},
		{selSequenceInput, id.SequenceText()},
		{selControlInput, fmt.Sprintf("%d", id.ControlDigit)},
	}
	for _, field := range fields {
		if err := f.session.SendKeys(ctx, field.selector, field.value); err != nil {
			return fmt.Errorf("fill search form: %w", err)
		}
	}
	if err := f.session.Click(ctx, selSearchButton); err != nil {
		return fmt.Errorf("submit search form: %w", err)
	}
	return nil
}

func (f *BookFetcher) readBook(ctx context.Context, id register.BookID) (register.EvidenceRecord, error) {
	summaryText, err := f.session.Text(ctx, selResultContent)
	if err != nil {
		return register.EvidenceRecord{}, fmt.Errorf("read book summary: %w", err)
	}
	summary := ParseSummary(summaryText)

	if err := f.session.Click(ctx, selPrintButton); err != nil {
		return register.EvidenceRecord{}, fmt.Errorf("open book view: %w", err)
	}

	sections := make(map[string]string, len(Sections))
	for _, section := range Sections {
		content, err := f.readSection(ctx, section)
		if err != nil {
			// Not every book carries every section; record it as empty.
			f.logger.Warn("section content unavailable",
				zap.String("book", id.String()),
				zap.String("section", section),
				zap.Error(err),
			)
			content = ""
		}
		sections[section] = content
	}

	return register.EvidenceRecord{
		ID:             id,
		RegisterNumber: summary.RegisterNumber,
		RegisterType:   summary.RegisterType,
		Court:          summary.Court,
		WrittenAt:      summary.WrittenAt,
		Location:       summary.Location,
		Owner:          summary.Owner,
		Sections:       sections,
	}, nil
}

func (f *BookFetcher) readSection(ctx context.Context, section string) (string, error) {
	selector := fmt.Sprintf(`input[type="submit"][value=%q]`, section)
	if err := f.session.Click(ctx, selector); err != nil {
		return "", err
	}
	return f.session.Text(ctx, selSectionContent)
}
