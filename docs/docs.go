// Package docs holds the swagger registration consumed by gin-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Start sign-in",
                "description": "Verifies captcha proof and credentials, then emails a one-time code",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "code sent"},
                    "400": {"description": "validation error"},
                    "401": {"description": "invalid credentials or captcha"},
                    "429": {"description": "rate limited"}
                }
            }
        },
        "/auth/verify-code": {
            "post": {
                "tags": ["Auth"],
                "summary": "Verify sign-in code",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "authenticated"},
                    "401": {"description": "wrong or expired code"},
                    "403": {"description": "account not provisioned"}
                }
            }
        },
        "/auth/resend-code": {
            "post": {
                "tags": ["Auth"],
                "summary": "Resend sign-in code",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "code sent"},
                    "429": {"description": "cooldown active"}
                }
            }
        },
        "/auth/register": {
            "post": {
                "tags": ["Users"],
                "summary": "Register an account",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "created"},
                    "400": {"description": "validation error"}
                }
            }
        },
        "/admin/reports/signins.pdf": {
            "get": {
                "tags": ["Reports"],
                "summary": "Sign-in audit export",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF report"}
                }
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storegate API",
	Description:      "Storefront back-office API with two-factor, captcha-gated login.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
