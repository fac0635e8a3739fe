package plugin

// LoadAllWith exposes the loader with a custom load function
var LoadAllWith = loadAll
