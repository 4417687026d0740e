package portal

import (
	"context"
	"fmt"

	"github.com/jswiatek/ekw-sourcer/internal/register"
)

// Dropdown elements of the department selector on the search form.
const (
	selDepartmentOpener = "#kodWydzialuImg"
	selDepartmentList   = "#kodWydzialuList"
)

// Departments scrapes the department dropdown once and returns the codes to
// source. The listing is finite and captured once per run; a fresh run
// re-scrapes it.
func Departments(ctx context.Context, session register.Session, baseURL string) ([]string, error) {
	if err := session.Navigate(ctx, baseURL); err != nil {
		return nil, fmt.Errorf("open search form: %w", err)
	}
	if err := session.Click(ctx, selDepartmentOpener); err != nil {
		return nil, fmt.Errorf("open department list: %w", err)
	}
	if err := session.WaitVisible(ctx, selDepartmentList); err != nil {
		return nil, fmt.Errorf("wait for department list: %w", err)
	}
	text, err := session.Text(ctx, selDepartmentList)
	if err != nil {
		return nil, fmt.Errorf("read department list: %w", err)
	}
	codes := ParseDepartmentCodes(text)
	if len(codes) == 0 {
		return nil, fmt.Errorf("department list contained no codes")
	}
	return codes, nil
}
