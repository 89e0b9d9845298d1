package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           vanguardd API
// @version         1.0
// @description     HTTP API for the local gaming-guide inference gateway.
//
// @contact.name   vanguardd maintainers
// @contact.url    https://github.com/your-org/vanguardd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
