package l3energy

import "fmt"

// Matrix is the append-only [frame][sector] energy time series. Rows are
// written once and never mutated; completed rows stay randomly accessible.
type Matrix struct {
	sectors int
	data    []float64
}

// NewMatrix creates an empty matrix. capacity is a frame-count hint and
// may be zero when the stream length is unknown.
func NewMatrix(sectors, capacity int) *Matrix {
	if capacity < 0 {
		capacity = 0
	}
	return &Matrix{sectors: sectors, data: make([]float64, 0, sectors*capacity)}
}

// MatrixFromRows builds a matrix from existing rows, e.g. synthetic series.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	m := NewMatrix(len(rows[0]), len(rows))
	for i, r := range rows {
		if err := m.Append(r); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return m, nil
}

// Append copies row in as the next frame.
func (m *Matrix) Append(row []float64) error {
	if len(row) != m.sectors {
		return fmt.Errorf("row has %d sectors, matrix has %d", len(row), m.sectors)
	}
	m.data = append(m.data, row...)
	return nil
}

// Frames returns the number of rows written.
func (m *Matrix) Frames() int {
	if m.sectors == 0 {
		return 0
	}
	return len(m.data) / m.sectors
}

// Sectors returns the row width.
func (m *Matrix) Sectors() int { return m.sectors }

// At returns the energy of sector s at frame i.
func (m *Matrix) At(i, s int) float64 {
	return m.data[i*m.sectors+s]
}

// Row returns frame i. The slice aliases internal storage and must not be
// modified.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.sectors : (i+1)*m.sectors : (i+1)*m.sectors]
}

// Column copies the time series of sector s over frames [0, n).
func (m *Matrix) Column(s, n int) []float64 {
	if n > m.Frames() {
		n = m.Frames()
	}
	col := make([]float64, n)
	for i := 0; i < n; i++ {
		col[i] = m.At(i, s)
	}
	return col
}
