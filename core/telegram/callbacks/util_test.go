package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		cb   *tele.Callback
		want Data
	}{
		{"nil", nil, Data{}},
		{"raw", &tele.Callback{Data: "\fpg|f10"}, Data{"pg", "f10"}},
		{"raw without payload", &tele.Callback{Data: "\fbooks"}, Data{"books", ""}},
		{"routed", &tele.Callback{Unique: "pg", Data: "b1"}, Data{"pg", "b1"}},
		{"payload with separator", &tele.Callback{Data: "\fpg|a|b"}, Data{"pg", "a|b"}},
	}
	for _, tt := range tests {
		if got := Parse(tt.cb); got != tt.want {
			t.Fatalf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}
