package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures Handler.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	Middlewares      []func(http.Handler) http.Handler
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts si on a chi router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	wrapper := serverWrapper{
		handler:          si,
		middlewares:      options.Middlewares,
		errorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Get("/indexes", wrapper.ListIndexes)
	r.Post("/indexes", wrapper.CreateIndex)
	r.Delete("/indexes/{name}", wrapper.DeleteIndex)
	r.Post("/indexes/{name}/update", wrapper.UpdateIndex)
	r.Get("/indexes/{name}/sample", wrapper.SampleIndex)
	r.Get("/indexes/{name}/schema", wrapper.GetSchema)
	r.Get("/configs", wrapper.ListConfigs)
	r.Delete("/aliases/{name}", wrapper.DeleteAlias)
	r.Get("/health", wrapper.HealthCheck)
	r.Get("/metrics", wrapper.Metrics)
	return r
}

type serverWrapper struct {
	handler          ServerInterface
	middlewares      []func(http.Handler) http.Handler
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (sw *serverWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, m := range sw.middlewares {
		h = m(h)
	}
	h.ServeHTTP(w, r)
}

func (sw *serverWrapper) pathName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", chi.URLParam(r, "name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		sw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "name", Err: err})
		return "", false
	}
	return name, true
}

func (sw *serverWrapper) ListIndexes(w http.ResponseWriter, r *http.Request) {
	var params ListIndexesParams
	err := runtime.BindQueryParameter("form", true, false, "include_cores", r.URL.Query(), &params.IncludeCores)
	if err != nil {
		sw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "include_cores", Err: err})
		return
	}
	sw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw.handler.ListIndexes(w, r, params)
	}))
}

func (sw *serverWrapper) CreateIndex(w http.ResponseWriter, r *http.Request) {
	sw.serve(w, r, http.HandlerFunc(sw.handler.CreateIndex))
}

func (sw *serverWrapper) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathName(w, r)
	if !ok {
		return
	}
	var params DeleteIndexParams
	err := runtime.BindQueryParameter("form", true, false, "keep_config", r.URL.Query(), &params.KeepConfig)
	if err != nil {
		sw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "keep_config", Err: err})
		return
	}
	sw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw.handler.DeleteIndex(w, r, name, params)
	}))
}

func (sw *serverWrapper) UpdateIndex(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathName(w, r)
	if !ok {
		return
	}
	var params UpdateIndexParams
	if err := runtime.BindQueryParameter("form", true, false, "content_type", r.URL.Query(), &params.ContentType); err != nil {
		sw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "content_type", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "version", r.URL.Query(), &params.Version); err != nil {
		sw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "version", Err: err})
		return
	}
	sw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw.handler.UpdateIndex(w, r, name, params)
	}))
}

func (sw *serverWrapper) SampleIndex(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathName(w, r)
	if !ok {
		return
	}
	var params SampleIndexParams
	err := runtime.BindQueryParameter("form", true, false, "rows", r.URL.Query(), &params.Rows)
	if err != nil {
		sw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "rows", Err: err})
		return
	}
	sw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw.handler.SampleIndex(w, r, name, params)
	}))
}

func (sw *serverWrapper) GetSchema(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathName(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw.handler.GetSchema(w, r, name)
	}))
}

func (sw *serverWrapper) ListConfigs(w http.ResponseWriter, r *http.Request) {
	sw.serve(w, r, http.HandlerFunc(sw.handler.ListConfigs))
}

func (sw *serverWrapper) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	name, ok := sw.pathName(w, r)
	if !ok {
		return
	}
	sw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw.handler.DeleteAlias(w, r, name)
	}))
}

func (sw *serverWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	sw.serve(w, r, http.HandlerFunc(sw.handler.HealthCheck))
}

func (sw *serverWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	sw.serve(w, r, http.HandlerFunc(sw.handler.Metrics))
}
