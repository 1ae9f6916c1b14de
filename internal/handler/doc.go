// Package handler implements the HTTP layer of the metacatalog REST API.
//
// Every entity collection is served by the same generic resource on top of
// service.Repository:
//
//	GET    /api/v1/{collection}                       list, filtered by container
//	GET    /api/v1/{collection}/{id}                  get
//	GET    /api/v1/{collection}/name/{fqn}            get by fully qualified name
//	POST   /api/v1/{collection}                       create
//	PUT    /api/v1/{collection}                       create or update
//	PATCH  /api/v1/{collection}/{id}                  JSON merge patch or JSON patch
//	DELETE /api/v1/{collection}/{id}                  delete
//	GET    /api/v1/{collection}/{id}/versions         version history
//	GET    /api/v1/{collection}/{id}/versions/{v}     one version
//
// Databases, tables, pipelines, glossaries and glossary terms also take
// PUT {id}/followers and DELETE {id}/followers/{userId}. Users have
// POST and DELETE {id}/token for API tokens. Tags live under /api/v1/tags,
// stored change events under /api/v1/events and a full snapshot at
// /api/v1/export.
//
// GET requests take a fields query parameter naming the optional relations
// to hydrate. Lists are paged with limit, before and after.
//
// Errors are returned as JSON with {code, type, message, requestId}.
//
// # Server-Sent Events
//
// /api/v1/events/stream streams change events as they are committed.
package handler
