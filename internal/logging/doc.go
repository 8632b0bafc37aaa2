// Package logging builds the sparkd zap logger.
//
// NewLogger tees a redacting stdout core with the otelzap bridge and
// samples below Error. Services receive the *zap.Logger from Underlying and
// call For to pick up the request correlation the HTTP layer stores in the
// context (trace_id, span_id, user.id, request.id):
//
//	logging.For(ctx, s.logger).Info("reward redeemed", zap.String("reward_id", id))
//
// Field names such as password, token and dsn, and values that look like
// credentials, are redacted by the encoder. Use NewTestLogger to assert on
// what a service logged.
package logging
