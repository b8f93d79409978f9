package keyboard

import "testing"

func TestInline(t *testing.T) {
	if Inline() != nil || Inline(nil, []Button{}) != nil {
		t.Fatal("empty keyboard must be nil")
	}
	m := Inline([]Button{{Text: "◀️", Unique: "pg", Data: "b1"}, {Text: "▶️", Unique: "pg", Data: "f1"}}, nil, []Button{{Text: "⏹️", Unique: "pg", Data: "stop"}})
	if m == nil || len(m.InlineKeyboard) != 2 {
		t.Fatalf("unexpected markup %+v", m)
	}
	first := m.InlineKeyboard[0]
	if len(first) != 2 || first[0].Text != "◀️" || first[0].Unique != "pg" || first[0].Data != "b1" {
		t.Fatalf("unexpected first row %+v", first)
	}
}

func TestChunk(t *testing.T) {
	buttons := []Button{{Text: "1"}, {Text: "2"}, {Text: "3"}, {Text: "4"}, {Text: "5"}}
	rows := Chunk(buttons, 2)
	if len(rows) != 3 || len(rows[2]) != 1 || rows[2][0].Text != "5" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows := Chunk(buttons, 0); len(rows) != 1 || len(rows[0]) != 5 {
		t.Fatalf("n=0 rows = %+v", rows)
	}
}
