// Package environment carries the deployment environment through
// context.Context.
//
// The attribution service uses it to decide how strict to be with input it
// does not control: conversion properties that fail validation are rejected in
// development and stripped in production.
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	handler = environment.Middleware(env)(handler)
//
//	if environment.IsProduction(r.Context()) {
//		// tolerate and log
//	}
package environment
