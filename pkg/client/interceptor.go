// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a2aproject/a2a-go/a2aclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// ExtensionsHeader announces the extensions a client wants to use.
const ExtensionsHeader = "X-A2A-Extensions"

// metaInterceptor adds the extensions header and propagates the trace
// context on every call.
type metaInterceptor struct {
	a2aclient.PassthroughInterceptor
	extensions []string
}

func (i *metaInterceptor) Before(ctx context.Context, req *a2aclient.Request) (context.Context, error) {
	if req.Meta == nil {
		req.Meta = a2aclient.CallMeta{}
	}
	if len(i.extensions) > 0 {
		req.Meta[ExtensionsHeader] = []string{strings.Join(i.extensions, ", ")}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(req.Meta)))

	slog.Debug("A2A call", "method", req.Method, "url", req.BaseURL)
	return ctx, nil
}

var _ a2aclient.CallInterceptor = (*metaInterceptor)(nil)
