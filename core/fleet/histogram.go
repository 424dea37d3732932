package fleet

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Cohort counts the cars of one age.
type Cohort struct {
	Electric   int `json:"electric"`
	Combustion int `json:"combustion"`
}

// Size returns the number of cars in the cohort.
func (c Cohort) Size() int { return c.Electric + c.Combustion }

// Histogram is a fleet represented as cohorts indexed by age in years.
type Histogram struct {
	cohorts []Cohort
}

// NewHistogram returns an empty fleet.
func NewHistogram() *Histogram { return &Histogram{} }

// Add puts n cars of the given age into the fleet.
func (h *Histogram) Add(age int, electric bool, n int) {
	if n <= 0 || age < 0 {
		return
	}
	for len(h.cohorts) <= age {
		h.cohorts = append(h.cohorts, Cohort{})
	}
	if electric {
		h.cohorts[age].Electric += n
	} else {
		h.cohorts[age].Combustion += n
	}
}

// Cohort returns the cohort of the given age.
func (h *Histogram) Cohort(age int) Cohort {
	if age < 0 || age >= len(h.cohorts) {
		return Cohort{}
	}
	return h.cohorts[age]
}

// MaxAge returns the oldest age present, or -1 for an empty fleet.
func (h *Histogram) MaxAge() int {
	for a := len(h.cohorts) - 1; a >= 0; a-- {
		if h.cohorts[a].Size() > 0 {
			return a
		}
	}
	return -1
}

// Total returns the number of cars.
func (h *Histogram) Total() int {
	n := 0
	for _, c := range h.cohorts {
		n += c.Size()
	}
	return n
}

// Electric returns the number of electric cars.
func (h *Histogram) Electric() int {
	n := 0
	for _, c := range h.cohorts {
		n += c.Electric
	}
	return n
}

// Clone returns an independent copy.
func (h *Histogram) Clone() *Histogram {
	c := make([]Cohort, len(h.cohorts))
	copy(c, h.cohorts)
	return &Histogram{cohorts: c}
}

// Retire removes every cohort whose age is at least maxAge and returns the
// number of cars removed. maxAge values within factorTolerance above an
// integer age still retire that age.
func (h *Histogram) Retire(maxAge float64) int {
	retired := 0
	for a := range h.cohorts {
		if float64(a) >= maxAge-factorTolerance {
			retired += h.cohorts[a].Size()
			h.cohorts[a] = Cohort{}
		}
	}
	h.trim()
	return retired
}

// RemoveOldest removes up to n cars starting with the oldest cohort. A
// partially removed cohort loses electric and combustion cars in proportion
// to its composition.
func (h *Histogram) RemoveOldest(n int) int {
	removed := 0
	for a := len(h.cohorts) - 1; a >= 0 && n > 0; a-- {
		c := &h.cohorts[a]
		size := c.Size()
		if size == 0 {
			continue
		}
		if size <= n {
			removed += size
			n -= size
			*c = Cohort{}
			continue
		}
		e := int(math.Round(float64(n) * float64(c.Electric) / float64(size)))
		if e > c.Electric {
			e = c.Electric
		}
		comb := n - e
		if comb > c.Combustion {
			comb = c.Combustion
			e = n - comb
		}
		c.Electric -= e
		c.Combustion -= comb
		removed += n
		n = 0
	}
	h.trim()
	return removed
}

// Age moves every car one year older.
func (h *Histogram) Age() {
	if len(h.cohorts) == 0 {
		return
	}
	h.cohorts = append(h.cohorts, Cohort{})
	copy(h.cohorts[1:], h.cohorts[:len(h.cohorts)-1])
	h.cohorts[0] = Cohort{}
}

// MeanAge returns the average car age, or 0 for an empty fleet.
func (h *Histogram) MeanAge() float64 {
	if h.Total() == 0 {
		return 0
	}
	ages := make([]float64, len(h.cohorts))
	weights := make([]float64, len(h.cohorts))
	for a, c := range h.cohorts {
		ages[a] = float64(a)
		weights[a] = float64(c.Size())
	}
	return stat.Mean(ages, weights)
}

func (h *Histogram) trim() {
	n := len(h.cohorts)
	for n > 0 && h.cohorts[n-1].Size() == 0 {
		n--
	}
	h.cohorts = h.cohorts[:n]
}
