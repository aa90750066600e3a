package model

import "strconv"

// GenerateSeatGrid builds rows*cols available seats for an event, labelled
// A1, A2 ... B1 and so on.  Rows past Z continue as AA, AB, like spreadsheet
// columns.
func GenerateSeatGrid(eventID string, rows, cols int) []Seat {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	seats := make([]Seat, 0, rows*cols)
	for r := 0; r < rows; r++ {
		row := RowLabel(r)
		for n := 1; n <= cols; n++ {
			seats = append(seats, Seat{
				EventID:  eventID,
				Label:    row + strconv.Itoa(n),
				RowLabel: row,
				Number:   n,
				State:    SeatAvailable,
			})
		}
	}
	return seats
}

// RowLabel converts a zero-based row index into its letter label
// (0 -> A, 25 -> Z, 26 -> AA).  Negative indices yield "".
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		res = append(res, rune('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
