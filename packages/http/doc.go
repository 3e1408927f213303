// Package http holds the request and response records that hooks mutate and
// the net/http backed Client that sends them.
//
// Request and Response are plain mutable records. Both expose Get and Set
// for named fields (unknown keys land in Extra) and implement Index so that
// paths such as $request.headers.X-Signature or $response.body.data.id
// resolve through the variable scope.
package http
