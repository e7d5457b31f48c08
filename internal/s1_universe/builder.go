package s1_universe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/wonny/fingear/internal/contracts"
	"github.com/wonny/fingear/pkg/logger"
)

// Universe sources
const (
	SourceArgs      = "args"
	SourceFile      = "file"
	SourceMarketCap = "market_cap"
)

// 종목코드: 영숫자 (예: 2330, 00878, 2330.TW)
var symbolPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._-]*$`)

// MarketCapRanker lists the largest instruments as of a date
type MarketCapRanker interface {
	TopByMarketCap(ctx context.Context, date time.Time, n int) ([]string, error)
}

// Request selects where the universe comes from.
// 우선순위: Symbols > File > 시가총액 상위 TopN
type Request struct {
	Symbols []string
	File    string
	TopN    int
}

// Builder constructs the candidate universe
type Builder struct {
	ranker MarketCapRanker
	logger *logger.Logger
}

// NewBuilder creates a new Universe Builder. ranker may be nil when only
// explicit symbols or files are used.
func NewBuilder(ranker MarketCapRanker, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{ranker: ranker, logger: log}
}

// Build constructs the universe for date
// ⭐ SSOT: S1 → S2 유니버스 생성
func (b *Builder) Build(ctx context.Context, date time.Time, req Request) (*contracts.Universe, error) {
	universe := &contracts.Universe{Date: date}

	switch {
	case len(req.Symbols) > 0:
		universe.Source = SourceArgs
		for _, s := range req.Symbols {
			if sym := normalize(s); sym != "" {
				universe.Stocks = append(universe.Stocks, sym)
			}
		}

	case req.File != "":
		symbols, err := LoadUniverseFile(req.File)
		if err != nil {
			return nil, err
		}
		universe.Source = SourceFile
		universe.Stocks = symbols

	default:
		if b.ranker == nil {
			return nil, &contracts.ConfigurationError{Field: "universe", Message: "no symbols, file or market cap source"}
		}
		if req.TopN <= 0 {
			return nil, &contracts.ConfigurationError{Field: "universe.top_n", Message: "must be > 0"}
		}
		symbols, err := b.ranker.TopByMarketCap(ctx, date, req.TopN)
		if err != nil {
			return nil, fmt.Errorf("top by market cap: %w", err)
		}
		universe.Source = SourceMarketCap
		universe.Stocks = symbols
	}

	universe.Dedup()

	b.logger.WithFields(map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"source": universe.Source,
		"count":  universe.Count(),
	}).Info("Universe built")

	if universe.Count() == 0 {
		b.logger.Warn("Universe is empty")
	}
	return universe, nil
}

// LoadUniverseFile reads a symbol list file
func LoadUniverseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer f.Close()

	symbols, err := ParseUniverseFile(f)
	if err != nil {
		return nil, fmt.Errorf("parse universe file %s: %w", path, err)
	}
	return symbols, nil
}

// ParseUniverseFile takes the first whitespace/comma separated token of each line.
// '#' 이후는 주석, 빈 줄 무시
func ParseUniverseFile(r io.Reader) ([]string, error) {
	var symbols []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) == 0 {
			continue
		}
		sym := normalize(fields[0])
		if !symbolPattern.MatchString(sym) {
			return nil, &contracts.ValidationError{
				Field:   fmt.Sprintf("line %d", line),
				Message: fmt.Sprintf("invalid symbol %q", fields[0]),
			}
		}
		symbols = append(symbols, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
