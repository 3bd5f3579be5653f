// Package ratelimit paces calls to the HIRA APIs.
//
// The detail fetch issues one request per input row. Pacer inserts a fixed
// pause between consecutive requests so a long run stays well under the
// portal's request quota. It keeps no token state: every call
// after the first simply sleeps the configured delay.
//
//	pacer := ratelimit.NewPacer(100 * time.Millisecond)
//	for _, row := range rows {
//		if err := pacer.Wait(ctx); err != nil {
//			return err
//		}
//		// call the API
//	}
package ratelimit
