package grid

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewRejectsEmptyAndOutOfBounds(t *testing.T) {
	if _, err := New(0, 3, nil); err != ErrEmptyGrid {
		t.Errorf("New(0,3,nil) error = %v; want ErrEmptyGrid", err)
	}
	if _, err := New(3, 3, []Position{{X: 5, Y: 5}}); err == nil {
		t.Errorf("New with out-of-bounds obstacle: want error, got nil")
	}
}

func TestFromMatrix(t *testing.T) {
	g, err := FromMatrix([][]int{
		{0, 1, 0},
		{0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromMatrix: %v", err)
	}
	if g.Width() != 3 || g.Height() != 2 {
		t.Fatalf("dims = %dx%d; want 3x2", g.Width(), g.Height())
	}
	if g.Passable(Position{X: 1, Y: 0}) {
		t.Errorf("(1,0) should be an obstacle")
	}
	if !g.Passable(Position{X: 1, Y: 1}) {
		t.Errorf("(1,1) should be passable")
	}
}

func TestFromMatrixRejectsJagged(t *testing.T) {
	if _, err := FromMatrix([][]int{{0, 0}, {0}}); err != ErrNonRectangular {
		t.Errorf("jagged matrix error = %v; want ErrNonRectangular", err)
	}
}

func TestInBounds(t *testing.T) {
	g, _ := New(3, 2, nil)
	valid := []Position{{0, 0}, {2, 1}, {1, 1}}
	for _, p := range valid {
		if !g.InBounds(p) {
			t.Errorf("InBounds(%v) = false; want true", p)
		}
	}
	invalid := []Position{{-1, 0}, {3, 0}, {0, 2}}
	for _, p := range invalid {
		if g.InBounds(p) {
			t.Errorf("InBounds(%v) = true; want false", p)
		}
	}
}

func TestNeighborsOrderAndFiltering(t *testing.T) {
	g, err := New(3, 3, []Position{{X: 2, Y: 1}})
	if err != nil {
		t.Fatal(err)
	}
	got := g.Neighbors(Position{X: 1, Y: 1})
	want := []Position{{2, 1}, {0, 1}, {1, 2}, {1, 0}}
	// (2,1) is an obstacle, so it must be filtered from the fixed order.
	want = want[1:]
	if len(got) != len(want) {
		t.Fatalf("Neighbors = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Neighbors[%d] = %v; want %v", i, got[i], want[i])
		}
	}
}

func TestNeighborsCornerOrder(t *testing.T) {
	g, _ := New(3, 3, nil)
	got := g.Neighbors(Position{X: 0, Y: 0})
	want := []Position{{1, 0}, {0, 1}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("corner Neighbors = %v; want %v", got, want)
	}
}

func TestHeuristicManhattan(t *testing.T) {
	g, _ := New(10, 10, nil)
	cases := []struct {
		a, b Position
		want int
	}{
		{Position{0, 0}, Position{3, 4}, 7},
		{Position{5, 5}, Position{5, 5}, 0},
		{Position{0, 0}, Position{9, 0}, 9},
	}
	for _, tc := range cases {
		if got := g.Heuristic(tc.a, tc.b); got != tc.want {
			t.Errorf("Heuristic(%v,%v) = %d; want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g, err := New(4, 3, []Position{{X: 2, Y: 1}, {X: 0, Y: 2}})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := g.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := FromJSON(&buf)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Width() != g.Width() || got.Height() != g.Height() {
		t.Fatalf("dims mismatch after round trip")
	}
	for p := range g.obstacles {
		if got.Passable(p) {
			t.Errorf("obstacle %v lost in round trip", p)
		}
	}
	for p := range got.obstacles {
		if _, ok := g.obstacles[p]; !ok {
			t.Errorf("spurious obstacle %v introduced by round trip", p)
		}
	}
}

func TestWriteJSONObstaclesSorted(t *testing.T) {
	g, _ := New(5, 5, []Position{{X: 3, Y: 0}, {X: 1, Y: 4}, {X: 1, Y: 0}})
	var buf bytes.Buffer
	if err := g.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}
	var payload jsonGrid
	if err := json.NewDecoder(&buf).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	want := [][]int{{1, 0}, {1, 4}, {3, 0}}
	if len(payload.Obstacles) != len(want) {
		t.Fatalf("got %v; want %v", payload.Obstacles, want)
	}
	for i := range want {
		if payload.Obstacles[i][0] != want[i][0] || payload.Obstacles[i][1] != want[i][1] {
			t.Errorf("obstacle[%d] = %v; want %v", i, payload.Obstacles[i], want[i])
		}
	}
}
