// Copyright 2025 OpenPubkey
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
//
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

var (
	ErrEmptyTable     = errors.New("route table is empty")
	ErrDuplicateRoute = errors.New("duplicate route")
	ErrInvalidRoute   = errors.New("invalid route")
)

// Diagnostics selects what a handler writes to the log for a request. It
// never changes the response.
type Diagnostics uint8

const (
	// LogConsistencyRequest logs the X-Chrome-ID-Consistency-Request header.
	LogConsistencyRequest Diagnostics = 1 << iota
	// LogBody logs the request body, up to the dispatcher's byte limit.
	LogBody
	// LogHeaders logs all request headers.
	LogHeaders
)

// Has reports whether every bit of flag is set.
func (d Diagnostics) Has(flag Diagnostics) bool {
	return d&flag == flag
}

// Response is a canned response. Body and Status never change once the
// table is built; Header is copied before it is handed out.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// Headers returns a copy of the response headers.
func (r Response) Headers() http.Header {
	if r.Header == nil {
		return http.Header{}
	}
	return r.Header.Clone()
}

type Route struct {
	// Name identifies the route in logs and in the routes command.
	Name string
	// Prefix is the path prefix the route is mounted under, e.g. "/sync".
	// Empty for routes registered at the root.
	Prefix string
	// Path is relative to Prefix. Trailing slashes are significant.
	Path        string
	Methods     []string
	Diagnostics Diagnostics
	Response    Response
}

// FullPath is the path a request must carry to match the route.
func (r Route) FullPath() string {
	return r.Prefix + r.Path
}

// AllowedMethods returns Methods plus HEAD when GET is allowed. HEAD gets
// the GET response without a body.
func (r Route) AllowedMethods() []string {
	methods := slices.Clone(r.Methods)
	if slices.Contains(methods, http.MethodGet) && !slices.Contains(methods, http.MethodHead) {
		methods = append(methods, http.MethodHead)
	}
	return methods
}

// Allows reports whether the route answers method, HEAD included.
func (r Route) Allows(method string) bool {
	return slices.Contains(r.AllowedMethods(), method)
}

func (r Route) validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: route for %q has no name", ErrInvalidRoute, r.FullPath())
	}
	if r.Prefix != "" && (!strings.HasPrefix(r.Prefix, "/") || strings.HasSuffix(r.Prefix, "/")) {
		return fmt.Errorf("%w: %s: prefix %q must start and must not end with /", ErrInvalidRoute, r.Name, r.Prefix)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("%w: %s: path %q must start with /", ErrInvalidRoute, r.Name, r.Path)
	}
	if len(r.Methods) == 0 {
		return fmt.Errorf("%w: %s: no methods", ErrInvalidRoute, r.Name)
	}
	for _, m := range r.Methods {
		if !knownMethod(m) {
			return fmt.Errorf("%w: %s: unknown method %q", ErrInvalidRoute, r.Name, m)
		}
	}
	if http.StatusText(r.Response.Status) == "" {
		return fmt.Errorf("%w: %s: unknown status %d", ErrInvalidRoute, r.Name, r.Response.Status)
	}
	return nil
}

func knownMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// Match is the outcome of looking up a request in a Table.
type Match int

const (
	// Found means a route answers both the path and the method.
	Found Match = iota
	// NotFound means no route has the path.
	NotFound
	// MethodNotAllowed means the path exists but none of its routes allow
	// the method.
	MethodNotAllowed
)

func (m Match) String() string {
	switch m {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case MethodNotAllowed:
		return "method not allowed"
	default:
		return fmt.Sprintf("Match(%d)", int(m))
	}
}

// Table is the fixed set of routes served. It is built once at startup and
// only read afterwards.
type Table []Route

// Validate checks every route and rejects two routes answering the same
// method on the same full path.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	seen := map[string]string{}
	for _, r := range t {
		if err := r.validate(); err != nil {
			return err
		}
		for _, m := range r.AllowedMethods() {
			key := m + " " + r.FullPath()
			if other, ok := seen[key]; ok {
				return fmt.Errorf("%w: %s is served by both %s and %s", ErrDuplicateRoute, key, other, r.Name)
			}
			seen[key] = r.Name
		}
	}
	return nil
}

// Lookup finds the route for a request the same way the dispatcher does:
// exact path match first, then method.
func (t Table) Lookup(method, path string) (Route, Match) {
	pathMatched := false
	for _, r := range t {
		if r.FullPath() != path {
			continue
		}
		pathMatched = true
		if r.Allows(method) {
			return r, Found
		}
	}
	if pathMatched {
		return Route{}, MethodNotAllowed
	}
	return Route{}, NotFound
}

// ByName returns the route with the given name.
func (t Table) ByName(name string) (Route, bool) {
	for _, r := range t {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Group is a set of routes sharing a mount prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// Groups returns the routes grouped by prefix. Groups appear in the order
// their prefix is first seen and routes keep their table order.
func (t Table) Groups() []Group {
	var groups []Group
	index := map[string]int{}
	for _, r := range t {
		i, ok := index[r.Prefix]
		if !ok {
			i = len(groups)
			index[r.Prefix] = i
			groups = append(groups, Group{Prefix: r.Prefix})
		}
		groups[i].Routes = append(groups[i].Routes, r)
	}
	return groups
}
