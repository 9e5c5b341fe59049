package utils

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"BrusselsTogether Meetup 3", "brusselstogether-meetup-3"},
		{"Scouts d'Arlon", "scouts-darlon"},
		{"  Café  Crème!! ", "cafe-creme"},
		{"Google", "google"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword("s3cret!", hash) {
		t.Error("expected password to match")
	}
	if CheckPassword("wrong", hash) {
		t.Error("expected mismatch")
	}
}

func TestPasswordEdgeCases(t *testing.T) {
	if _, err := HashPassword(""); err != ErrEmptyPassword {
		t.Errorf("HashPassword(\"\") error = %v", err)
	}
	if CheckPassword("", "") {
		t.Error("empty hash matched")
	}
}
