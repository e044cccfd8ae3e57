package model

import (
	"testing"
	"time"
)

func TestExpired(t *testing.T) {
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"без срока действия", nil, false},
		{"срок в будущем", &future, false},
		{"срок в прошлом", &past, true},
		{"срок ровно сейчас", &now, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qr := &QRCode{ExpiresAt: tc.expiresAt}
			if got := qr.Expired(now); got != tc.want {
				t.Errorf("Expired() = %v, ожидается %v", got, tc.want)
			}
		})
	}
}

func TestImagePending(t *testing.T) {
	qr := &QRCode{ImageData: ImagePlaceholder}
	if !qr.ImagePending() {
		t.Error("placeholder должен считаться незавершённым изображением")
	}

	qr.ImageData = "data:image/png;base64,dGVzdA=="
	if qr.ImagePending() {
		t.Error("data URL не должен считаться незавершённым изображением")
	}
}
