package node

import "fmt"

// Point is a location in source text: 1-indexed line and column and a
// 0-indexed byte offset.
type Point struct {
	Line   int
	Column int
	Offset int
}

// NewPoint validates and returns a point.
func NewPoint(line, column, offset int) (Point, error) {
	if line < 1 || column < 1 {
		return Point{}, fmt.Errorf("invalid point %d:%d: line and column are 1-indexed", line, column)
	}
	if offset < 0 {
		return Point{}, fmt.Errorf("invalid point offset %d: must not be negative", offset)
	}
	return Point{Line: line, Column: column, Offset: offset}, nil
}

func (p Point) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Before reports whether p comes strictly before q.
func (p Point) Before(q Point) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Position is the span covered by a node. The zero value means unknown.
type Position struct {
	Start Point
	End   Point
}

// NewPosition validates and returns a span.
func NewPosition(start, end Point) (Position, error) {
	if end.Before(start) {
		return Position{}, fmt.Errorf("invalid span %s-%s: end before start", start, end)
	}
	return Position{Start: start, End: end}, nil
}

// Known reports whether the position was set by the parser.
func (p Position) Known() bool { return p.Start.Line > 0 }

func (p Position) String() string {
	if !p.Known() {
		return "-"
	}
	return p.Start.String() + "-" + p.End.String()
}
