package client

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/dan-strohschein/resilientdb/dialect"
	"github.com/dan-strohschein/resilientdb/mapper"
)

// AsyncSend dispatches q on a separate native connection without waiting
// for it to run. A Text with params is sent as a parameterized statement; a
// TxBatch is sent as its concatenation and cannot take params. Only the
// send itself is reported; the connection is closed before returning.
// Postgres only.
func (c *Client) AsyncSend(ctx context.Context, q Sendable, params ...interface{}) error {
	fo, ok := c.dialect.(dialect.FanOut)
	if !ok {
		return newBatchError(CodeAsyncUnsupported, "async dispatch requires postgres", nil,
			map[string]interface{}{"driver": c.dialect.Kind().String()})
	}
	if _, isBatch := q.(TxBatch); isBatch && len(params) > 0 {
		return newBatchError(CodeAsyncBatchParams, "a transaction batch cannot be sent with parameters", nil,
			map[string]interface{}{"params": len(params)})
	}

	text := q.sendText()
	if text == "" {
		return nil
	}

	conninfo, err := fo.NativeDSN(c.dsn, c.opts.Login, c.opts.Password)
	if err != nil {
		return newBatchError(CodeAsyncSendFailed, "cannot build native connection string", err, nil)
	}

	conn, err := pgconn.Connect(ctx, conninfo)
	if err != nil {
		return newBatchError(CodeAsyncSendFailed, "cannot open native connection", err, nil)
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			c.logger.Debug("async connection close failed", Error("error", closeErr))
		}
	}()

	frontend := conn.Frontend()
	if len(params) == 0 {
		frontend.Send(&pgproto3.Query{String: text})
	} else {
		frontend.Send(&pgproto3.Parse{Query: text})
		frontend.Send(&pgproto3.Bind{Parameters: encodeTextParams(params)})
		frontend.Send(&pgproto3.Execute{})
		frontend.Send(&pgproto3.Sync{})
	}

	if err := frontend.Flush(); err != nil {
		return newBatchError(CodeAsyncSendFailed, "failed to send statement", err, nil)
	}

	c.logger.Debug("async statement sent", Int("params", len(params)))
	return nil
}

// encodeTextParams renders params in the text format; NULL stays nil.
func encodeTextParams(params []interface{}) [][]byte {
	out := make([][]byte, len(params))
	for i, p := range params {
		v := mapper.BindValue(p)
		if v == nil {
			continue
		}
		if b, ok := v.(bool); ok {
			if b {
				out[i] = []byte("t")
			} else {
				out[i] = []byte("f")
			}
			continue
		}
		out[i] = []byte(mapper.ToString(v))
	}
	return out
}
