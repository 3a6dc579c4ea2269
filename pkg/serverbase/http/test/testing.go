package sbhttptest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"

	"pgregory.net/rapid"

	lhttptest "github.com/fittrack/fitness-tracker-api/pkg/http/test"
	sbhttpbase "github.com/fittrack/fitness-tracker-api/pkg/serverbase/http/base"
)

// JsonObjectGenerator draws arbitrary JSON documents nested at most maxJsonDepth levels.
func JsonObjectGenerator(maxJsonDepth int) *rapid.Generator[json.RawMessage] {
	return rapid.Custom(func(t *rapid.T) json.RawMessage {
		generators := []*rapid.Generator[json.RawMessage]{
			jsonValue(rapid.Bool()),
			rapid.Just(json.RawMessage("null")),
			jsonValue(rapid.Float64Range(-1e6, 1e6)),
			jsonValue(rapid.StringMatching(`[a-z_]{1,10}`)),
		}
		if maxJsonDepth > 0 {
			generators = append(generators,
				jsonValue(rapid.SliceOfN(JsonObjectGenerator(maxJsonDepth-1), 1, 5)),
				jsonValue(rapid.MapOfN(rapid.StringMatching(`[a-z_]{1,10}`), JsonObjectGenerator(maxJsonDepth-1), 1, 5)),
			)
		}
		return rapid.OneOf(generators...).Draw(t, "json")
	})
}

func jsonValue[V any](gen *rapid.Generator[V]) *rapid.Generator[json.RawMessage] {
	return rapid.Custom(func(t *rapid.T) json.RawMessage {
		ret, _ := json.Marshal(gen.Draw(t, "value"))
		return ret
	})
}

func RequestGenerator(recorder *httptest.ResponseRecorder) *rapid.Generator[*sbhttpbase.Request] {
	return rapid.Custom(func(t *rapid.T) *sbhttpbase.Request {
		body := rapid.SliceOf(rapid.Byte()).Draw(t, "body")
		return requestGeneratorHelper(t, recorder, bytes.NewBuffer(body))
	})
}

func RequestWithBodyGenerator(recorder *httptest.ResponseRecorder, body io.Reader) *rapid.Generator[*sbhttpbase.Request] {
	return rapid.Custom(func(t *rapid.T) *sbhttpbase.Request {
		return requestGeneratorHelper(t, recorder, body)
	})
}

func requestGeneratorHelper(t *rapid.T, recorder *httptest.ResponseRecorder, body io.Reader) *sbhttpbase.Request {
	request := &sbhttpbase.Request{
		PathPattern: rapid.String().Draw(t, "path"),
		Writer:      recorder,
		Request: httptest.NewRequest(
			lhttptest.MethodGenerator().Draw(t, "method"),
			lhttptest.UrlGenerator().Draw(t, "target"),
			body,
		),
		Params: rapid.MapOf(rapid.String(), rapid.String()).Draw(t, "params"),
	}
	request.Request.Header = lhttptest.HeadersGenerator().Draw(t, "header")
	return request
}

// HandlerGenerator draws handlers that consume the request and answer with a random
// status, headers and body.
func HandlerGenerator() *rapid.Generator[sbhttpbase.HandleFunc] {
	return rapid.Custom(func(t *rapid.T) sbhttpbase.HandleFunc {
		code := lhttptest.CodeGenerator().Draw(t, "code")
		headers := lhttptest.HeadersGenerator().Draw(t, "headers")
		body := rapid.SliceOf(rapid.Byte()).Draw(t, "body")

		return func(request *sbhttpbase.Request) {
			io.Copy(io.Discard, request.Request.Body)
			request.Request.Body.Close()

			writer := request.Writer
			for k, vals := range headers {
				writer.Header().Del(k)
				for _, v := range vals {
					writer.Header().Add(k, v)
				}
			}

			writer.WriteHeader(code)
			writer.Write(body)
		}
	})
}
