package quality

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/fingear/internal/contracts"
)

// RecordValidator checks input records before scoring
// ⭐ SSOT: S0 레코드 스키마 검증 (결측 컬럼, 날짜 정렬)
type RecordValidator struct {
	validate *validator.Validate
}

// NewRecordValidator creates a validator with the notnan and fiscalquarter rules registered
func NewRecordValidator() *RecordValidator {
	v := validator.New()
	_ = v.RegisterValidation("notnan", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			return !math.IsNaN(fl.Field().Float())
		default:
			return true
		}
	})
	_ = v.RegisterValidation("fiscalquarter", func(fl validator.FieldLevel) bool {
		_, ok := contracts.QuarterIndex(fl.Field().String())
		return ok
	})
	// 에러 필드명은 json 태그 기준 (quarters[2].eps)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &RecordValidator{validate: v}
}

// ValidateFundamental checks required columns, unique periods and report date order
func (v *RecordValidator) ValidateFundamental(rec *contracts.FundamentalRecord) error {
	if rec == nil {
		return &contracts.ValidationError{Field: "record", Message: "nil"}
	}
	if err := v.validate.Struct(rec); err != nil {
		return toValidationError(rec.Symbol, err)
	}

	seen := make(map[string]struct{}, len(rec.Quarters))
	for i, q := range rec.Quarters {
		if _, dup := seen[q.Period]; dup {
			return &contracts.ValidationError{
				Symbol:  rec.Symbol,
				Field:   fmt.Sprintf("quarters[%d].period", i),
				Message: fmt.Sprintf("duplicate period %s", q.Period),
			}
		}
		seen[q.Period] = struct{}{}

		if i > 0 && !q.ReportDate.After(rec.Quarters[i-1].ReportDate) {
			return &contracts.ValidationError{
				Symbol:  rec.Symbol,
				Field:   fmt.Sprintf("quarters[%d].report_date", i),
				Message: "must be strictly increasing (oldest first)",
			}
		}
	}
	return nil
}

// ValidatePrice checks OHLC columns and strictly increasing bar dates.
// Indicator columns may be NaN; the technical classifier reports those as insufficient.
func (v *RecordValidator) ValidatePrice(rec *contracts.PriceRecord) error {
	if rec == nil {
		return &contracts.ValidationError{Field: "record", Message: "nil"}
	}
	for i, b := range rec.Bars {
		ohlc := [4]float64{b.Open, b.High, b.Low, b.Close}
		for j, val := range ohlc {
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return &contracts.ValidationError{
					Symbol:  rec.Symbol,
					Field:   fmt.Sprintf("bars[%d].%s", i, ohlcNames[j]),
					Message: "missing",
				}
			}
		}
		if b.Volume < 0 {
			return &contracts.ValidationError{
				Symbol:  rec.Symbol,
				Field:   fmt.Sprintf("bars[%d].volume", i),
				Message: "must be >= 0",
			}
		}
		if i > 0 && !b.Date.After(rec.Bars[i-1].Date) {
			return &contracts.ValidationError{
				Symbol:  rec.Symbol,
				Field:   fmt.Sprintf("bars[%d].date", i),
				Message: "must be strictly increasing (oldest first)",
			}
		}
	}
	return nil
}

var ohlcNames = [4]string{"open", "high", "low", "close"}

func toValidationError(symbol string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &contracts.ValidationError{Symbol: symbol, Field: "record", Message: err.Error()}
	}

	fe := verrs[0]
	field := fe.Namespace()
	// 최상위 struct 이름 제거: FundamentalRecord.quarters[2].eps → quarters[2].eps
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	msg := fe.Tag()
	switch fe.Tag() {
	case "notnan":
		msg = "missing"
	case "required":
		msg = "required"
	case "fiscalquarter":
		msg = "must look like 2024Q3"
	}
	return &contracts.ValidationError{Symbol: symbol, Field: field, Message: msg}
}
