package middleware

import tele "gopkg.in/telebot.v4"

// AdminOnly lets only adminID through. Other senders get onReject, or
// silence when it is nil. A zero adminID rejects everyone.
func AdminOnly(adminID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); adminID != 0 && u != nil && u.ID == adminID {
				return next(c)
			}
			if onReject != nil {
				return onReject(c)
			}
			return nil
		}
	}
}
