package attendance

import (
	"math/rand"
	"time"
)

// test hooks
var ErrCodeExhausted = errCodeExhausted

func SetNowFunc(f func() time.Time) { nowFunc = f }
func ResetNowFunc()                 { nowFunc = time.Now }
func SetRandIntn(f func(int) int)   { randIntn = f }
func ResetRandIntn()                { randIntn = rand.Intn }
func SetCodeRetryCap(n int)         { codeRetryCap = n }
func SetGoodThreshold(n int)        { goodThreshold = n }
