package sarima

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period (12 for monthly data with yearly seasonality)
}

// String formats the order the way R's forecast package prints it,
// e.g. ARIMA(1,1,1)(0,1,1)[12]. The seasonal part is omitted when empty.
func (o Order) String() string {
	s := fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	if o.Seasonal() {
		s += fmt.Sprintf("(%d,%d,%d)[%d]", o.SP, o.SD, o.SQ, o.M)
	}
	return s
}

// Seasonal reports whether any seasonal order is non-zero.
func (o Order) Seasonal() bool {
	return o.SP+o.SD+o.SQ > 0
}

// NumCoeffs returns p+q+P+Q, the ARMA degrees of freedom used by the
// Ljung-Box test.
func (o Order) NumCoeffs() int {
	return o.P + o.Q + o.SP + o.SQ
}

// Validate checks the order for negative terms and a missing period.
func (o Order) Validate() error {
	for _, v := range []int{o.P, o.D, o.Q, o.SP, o.SD, o.SQ} {
		if v < 0 {
			return fmt.Errorf("%w: negative order in %s", ErrInvalidOrder, o)
		}
	}
	if o.Seasonal() && o.M < 2 {
		return fmt.Errorf("%w: seasonal terms need a period of at least 2, got %d", ErrInvalidOrder, o.M)
	}
	return nil
}

var orderPattern = regexp.MustCompile(`^(?i:ARIMA)?\((\d+),(\d+),(\d+)\)(?:\((\d+),(\d+),(\d+)\)\[(\d+)\])?$`)

// ParseOrder parses the String form, with or without the ARIMA prefix:
// "ARIMA(1,1,1)(0,1,1)[12]", "(2,1,0)", "(0,1,1)(0,1,1)[12]".
func ParseOrder(s string) (Order, error) {
	compact := strings.Join(strings.Fields(s), "")
	match := orderPattern.FindStringSubmatch(compact)
	if match == nil {
		return Order{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidOrder, s)
	}

	nums := make([]int, 7)
	for i, field := range match[1:] {
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return Order{}, fmt.Errorf("%w: %q: %w", ErrInvalidOrder, s, err)
		}
		nums[i] = v
	}

	o := Order{P: nums[0], D: nums[1], Q: nums[2], SP: nums[3], SD: nums[4], SQ: nums[5], M: nums[6]}
	if err := o.Validate(); err != nil {
		return Order{}, err
	}
	return o, nil
}
