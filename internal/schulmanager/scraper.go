/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schulmanager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/schulfunk/schulfunk/internal/config"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

// Scraper logs into Schulmanager with a headless browser and reads the
// rendered plan table. The plan is an Angular app, so there is no static
// HTML to fetch; the table only exists after login and client side render.
type Scraper struct {
	url      string
	username string
	password string
	headless bool
	timeout  time.Duration
	subjects map[string]string
	logger   zerolog.Logger
}

// New builds a scraper from config, loading the subject abbreviation map.
func New(cfg *config.Config, logger zerolog.Logger) (*Scraper, error) {
	subjects, err := LoadSubjectMap(cfg.SubjectMapPath)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		url:      cfg.SchulmanagerURL,
		username: cfg.SchulmanagerUsername,
		password: cfg.SchulmanagerPassword,
		headless: cfg.ScraperHeadless,
		timeout:  cfg.ScraperTimeout,
		subjects: subjects,
		logger:   logger.With().Str("component", "scraper").Logger(),
	}, nil
}

// Scrape fetches the plan grid and normalizes it into a schedule document.
func (s *Scraper) Scrape(ctx context.Context) (*timetable.Document, error) {
	cells, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Int("cells", len(cells)).Msg("plan grid scraped")
	return BuildDocument(cells, s.subjects)
}

// fetch drives the browser: login form, wait for the rendered table, then
// walk the grid.
func (s *Scraper) fetch(ctx context.Context) ([]RawCell, error) {
	l := launcher.New().Headless(s.headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("browser close failed")
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: s.url})
	if err != nil {
		return nil, fmt.Errorf("open plan page: %w", err)
	}
	page = page.Timeout(s.timeout)

	if err := s.login(page); err != nil {
		return nil, err
	}

	// The table renders cell by cell; lesson-cell appearing means the grid
	// request completed.
	if _, err := page.Element(".lesson-cell"); err != nil {
		return nil, fmt.Errorf("plan table did not render: %w", err)
	}
	table, err := page.Element(".calendar-table")
	if err != nil {
		return nil, fmt.Errorf("find plan table: %w", err)
	}

	return s.walkGrid(table)
}

func (s *Scraper) login(page *rod.Page) error {
	userField, err := page.Element("#emailOrUsername")
	if err != nil {
		return fmt.Errorf("login form did not load: %w", err)
	}
	passField, err := page.Element("#password")
	if err != nil {
		return fmt.Errorf("login form did not load: %w", err)
	}
	if err := userField.Input(s.username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := passField.Input(s.password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := passField.Type(input.Enter); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	s.logger.Debug().Str("user", s.username).Msg("login submitted")
	return nil
}

// walkGrid reads the period-by-day table. Rows are bell periods, columns are
// weekdays; empty cells carry no lesson markup.
func (s *Scraper) walkGrid(table *rod.Element) ([]RawCell, error) {
	rows, err := table.ElementsX(".//tbody/tr")
	if err != nil {
		return nil, fmt.Errorf("read plan rows: %w", err)
	}

	var cells []RawCell
	for period, row := range rows {
		tds, err := row.ElementsX("./td")
		if err != nil {
			return nil, fmt.Errorf("read plan row %d: %w", period, err)
		}
		for day, td := range tds {
			lessons, err := td.ElementsX("./div/div/div")
			if err != nil || len(lessons) == 0 {
				continue
			}
			cell, ok, err := s.readCell(lessons.First())
			if err != nil {
				s.logger.Warn().Err(err).Int("period", period).Int("day", day).Msg("unreadable plan cell skipped")
				continue
			}
			if !ok {
				continue
			}
			cell.Period = period
			cell.Day = day
			cells = append(cells, cell)
		}
	}
	return cells, nil
}

// readCell extracts subject, room and teacher from one lesson cell. The
// markup differs between regular lessons, substitutions (is-new), room or
// teacher changes (visual-diff) and cancellations. ok is false for cells
// without lesson data, such as exam overlays.
func (s *Scraper) readCell(lesson *rod.Element) (RawCell, bool, error) {
	cls, err := lesson.Attribute("class")
	if err != nil {
		return RawCell{}, false, err
	}
	classes := ""
	if cls != nil {
		classes = *cls
	}
	cancelled := strings.Contains(classes, "cancelled")
	isNew := strings.Contains(classes, "is-new")

	diffs, _ := lesson.ElementsX("./span[1]/visual-diff")
	changed := len(diffs) > 0

	var cell RawCell
	cell.Cancelled = cancelled
	cell.Changed = isNew || changed || cancelled

	switch {
	case isNew:
		spans, _ := lesson.ElementsX("./span")
		if len(spans) == 0 {
			// Standalone substitution without course markup.
			subject, err := nodeText(lesson, "./div[1]")
			if err != nil {
				return RawCell{}, false, err
			}
			teacher, err := nodeText(lesson, "./div[2]/span[1]/span[1]")
			if err != nil {
				return RawCell{}, false, err
			}
			cell.Subject = subject
			cell.Room = "No room specified"
			cell.Teacher = teacher
			return cell, true, nil
		}
		subject, err := nodeText(lesson, "./span[1]/span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		if subject == "Klausur" {
			return RawCell{}, false, nil
		}
		cell.Subject = subject
		cell.Room, err = nodeText(lesson, "./div[1]/span[1]/span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Teacher, err = nodeText(lesson, "./span[2]/span[1]/span[1]")
		return cell, true, err

	case cancelled:
		var err error
		cell.Subject, err = nodeText(lesson, "./span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Room, err = nodeText(lesson, "./div[1]/span[1]/span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Teacher, err = nodeText(lesson, "./span[2]/span[1]/span[1]")
		return cell, true, err

	case changed:
		var err error
		cell.Subject, err = nodeText(lesson, "./span[1]/visual-diff[1]/span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Room, err = nodeText(lesson, "./div[1]/span[1]/span[2]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Teacher, err = nodeText(lesson, "./span[2]/span[1]/span[1]")
		return cell, true, err

	default:
		var err error
		cell.Subject, err = nodeText(lesson, "./span[1]/span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Room, err = nodeText(lesson, "./div[1]/span[1]/span[1]")
		if err != nil {
			return RawCell{}, false, err
		}
		cell.Teacher, err = nodeText(lesson, "./span[2]/span[1]/span[1]")
		return cell, true, err
	}
}

func nodeText(el *rod.Element, xpath string) (string, error) {
	found, err := el.ElementsX(xpath)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no node at %s", xpath)
	}
	text, err := found.First().Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
