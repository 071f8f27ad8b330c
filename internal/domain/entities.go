package domain

import "time"

type Count struct {
	Path      string
	Encoding  string
	Tokens    int
	Bytes     int
	CountedAt time.Time
}
