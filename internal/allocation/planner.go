// Package allocation proposes and validates splits of a quantity across
// locations. Everything here is pure; availability is passed in by the caller.
package allocation

import (
	"fmt"
	"sort"

	"fleetledger/internal/models"

	"github.com/google/uuid"
)

// Plan proposes allocations for total using greedy largest-first. Existing
// rows are kept as they are and only the shortfall is filled from candidates
// not already used. The result may sum to less than total when availability
// runs out.
func Plan(total int, candidates []models.Candidate, existing []models.Allocation) []models.Allocation {
	out := append([]models.Allocation(nil), existing...)
	remaining := Remaining(total, out)
	if remaining <= 0 {
		return out
	}

	used := make(map[uuid.UUID]bool, len(out))
	for _, a := range out {
		used[a.LocationID] = true
	}

	for _, c := range byAvailability(candidates) {
		if remaining == 0 {
			break
		}
		if used[c.LocationID] || c.Available <= 0 {
			continue
		}
		q := min(remaining, c.Available)
		out = append(out, models.Allocation{LocationID: c.LocationID, Quantity: q})
		used[c.LocationID] = true
		remaining -= q
	}
	return out
}

// AddLocation appends candidate with min(remaining, available). A location
// already present is left as it is.
func AddLocation(total int, existing []models.Allocation, candidate models.Candidate) []models.Allocation {
	out := append([]models.Allocation(nil), existing...)
	for _, a := range out {
		if a.LocationID == candidate.LocationID {
			return out
		}
	}
	q := min(max(Remaining(total, out), 0), max(candidate.Available, 0))
	return append(out, models.Allocation{LocationID: candidate.LocationID, Quantity: q})
}

// EditQuantity sets row index to quantity clamped to [0, available]. Other
// rows are never rebalanced; use Remaining to show the new shortfall.
func EditQuantity(allocs []models.Allocation, index, quantity, available int) []models.Allocation {
	out := append([]models.Allocation(nil), allocs...)
	if index < 0 || index >= len(out) {
		return out
	}
	out[index].Quantity = min(max(quantity, 0), max(available, 0))
	return out
}

// Remaining is total minus the allocated sum. Negative means over-allocated.
func Remaining(total int, allocs []models.Allocation) int {
	return total - Sum(allocs)
}

func Sum(allocs []models.Allocation) int {
	sum := 0
	for _, a := range allocs {
		sum += a.Quantity
	}
	return sum
}

// ValidateConsumption requires the rows to sum to exactly total and each
// location to stay within its availability.
func ValidateConsumption(total int, allocs []models.Allocation, availability map[uuid.UUID]int) error {
	if total <= 0 || total > models.MaxQuantity {
		return fmt.Errorf("total %d: %w", total, models.ErrInvalidQuantity)
	}
	perLocation := make(map[uuid.UUID]int, len(allocs))
	for _, a := range allocs {
		if a.Quantity < 0 || a.Quantity > models.MaxQuantity {
			return fmt.Errorf("location %s quantity %d: %w", a.LocationID, a.Quantity, models.ErrInvalidQuantity)
		}
		perLocation[a.LocationID] += a.Quantity
	}
	if sum := Sum(allocs); sum != total {
		return fmt.Errorf("allocated %d of %d: %w", sum, total, models.ErrAllocationMismatch)
	}
	for loc, q := range perLocation {
		if avail := availability[loc]; q > avail {
			return fmt.Errorf("location %s: %d requested, %d available: %w", loc, q, avail, models.ErrExceedsAvailability)
		}
	}
	return nil
}

// ValidateStocking only requires a positive total with no negative rows; the
// sum becomes new stock rather than a slice of an existing total.
func ValidateStocking(allocs []models.Allocation) error {
	for _, a := range allocs {
		if a.Quantity < 0 || a.Quantity > models.MaxQuantity {
			return fmt.Errorf("location %s quantity %d: %w", a.LocationID, a.Quantity, models.ErrInvalidQuantity)
		}
	}
	if Sum(allocs) <= 0 {
		return models.ErrEmptyStocking
	}
	return nil
}

// byAvailability sorts a copy of candidates by availability descending,
// ties broken by location id so plans are deterministic.
func byAvailability(candidates []models.Candidate) []models.Candidate {
	sorted := append([]models.Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Available != sorted[j].Available {
			return sorted[i].Available > sorted[j].Available
		}
		return sorted[i].LocationID.String() < sorted[j].LocationID.String()
	})
	return sorted
}
