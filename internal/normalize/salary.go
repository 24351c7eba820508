package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const maxSalary = 1e15

var (
	// amountToken captures a number and the unit written right after it,
	// with or without a space ("5 juta", "5jt", "25k").
	amountToken = regexp.MustCompile(
		`(?i)(\d+(?:[.,]\d+)*)(?:\s*(miliar|milyar|billion|bn|juta|jt|million|mio|ribu|rb|thousand|k)\b)?`)
	centsSuffix   = regexp.MustCompile(`^(.*\d)[.,](\d{1,2})$`)
	thousandGroup = regexp.MustCompile(`^\d{1,3}(?:[.,]\d{3})+$`)
)

var unitFactors = map[string]float64{
	"miliar": 1e9, "milyar": 1e9, "billion": 1e9, "bn": 1e9,
	"juta": 1e6, "jt": 1e6, "million": 1e6, "mio": 1e6,
	"ribu": 1e3, "rb": 1e3, "thousand": 1e3, "k": 1e3,
}

type amount struct {
	value  float64
	factor float64
}

// Salary parses a free-text range such as "Rp.4 – 5 Juta", "Rp4jt - 5jt" or
// "IDR 4.000.000 - 6.000.000" into non-negative (min, max) amounts. Each
// amount takes the unit written after it; an amount without one borrows the
// unit of the nearest following amount, then the preceding one. A single
// amount yields min == max. Text without amounts, including "Negosiasi",
// yields (0, 0).
func Salary(text string) (int64, int64) {
	matches := amountToken.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, 0
	}
	if len(matches) > 2 {
		matches = matches[:2]
	}
	amounts := make([]amount, 0, len(matches))
	for _, m := range matches {
		v, ok := parseAmount(m[1])
		if !ok {
			return 0, 0
		}
		amounts = append(amounts, amount{value: v, factor: unitFactors[strings.ToLower(m[2])]})
	}

	values := make([]float64, len(amounts))
	for i, a := range amounts {
		switch {
		case a.factor > 0:
			values[i] = a.value * a.factor
		case a.value < 1000:
			values[i] = a.value * borrowedFactor(amounts, i)
		default:
			values[i] = a.value
		}
	}
	lo := values[0]
	hi := lo
	if len(values) > 1 {
		hi = values[1]
	}
	return SalaryBounds(lo, hi)
}

func borrowedFactor(amounts []amount, i int) float64 {
	for j := i + 1; j < len(amounts); j++ {
		if amounts[j].factor > 0 {
			return amounts[j].factor
		}
	}
	for j := i - 1; j >= 0; j-- {
		if amounts[j].factor > 0 {
			return amounts[j].factor
		}
	}
	return 1
}

// SalaryBounds clamps numeric bounds to non-negative integers with
// min <= max. A missing upper bound takes the lower bound; out-of-range
// values mean unspecified.
func SalaryBounds(lo, hi float64) (int64, int64) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > maxSalary || hi > maxSalary {
		return 0, 0
	}
	if lo < 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	switch {
	case hi == 0:
		hi = lo
	case lo > hi:
		lo, hi = hi, lo
	}
	return int64(math.Round(lo)), int64(math.Round(hi))
}

func parseAmount(tok string) (float64, bool) {
	if m := centsSuffix.FindStringSubmatch(tok); m != nil && strings.ContainsAny(m[1], ".,") {
		tok = m[1]
	}
	if thousandGroup.MatchString(tok) {
		tok = strings.NewReplacer(".", "", ",", "").Replace(tok)
	} else if strings.Count(tok, ".")+strings.Count(tok, ",") > 1 {
		tok = strings.NewReplacer(".", "", ",", "").Replace(tok)
	} else {
		tok = strings.Replace(tok, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || v > maxSalary {
		return 0, false
	}
	return v, true
}
