// Package definition loads test suites from YAML files.
//
// A suite file has a config block and a list of cases; each case has its own
// config and an ordered list of steps:
//
//	config:
//	  name: orders
//	  base_url: ${env.BASE_URL}
//	  setup_hooks:
//	    - ${suite_setup()}
//	cases:
//	  - config:
//	      name: create order
//	      tags: [smoke]
//	    steps:
//	      - name: create
//	        setup_hooks:
//	          - ${setup_hook_sign_request($request)}
//	        request:
//	          method: POST
//	          path: /orders
//	          body:
//	            sku: ${short_uid(6)}
//	        extract:
//	          order_id: $.data.id
//	        validate:
//	          - eq: [status_code, 201]
//
// Inside flow collections ([...] and {...}) an expression must be quoted:
//
//	- eq: [$.data.status, "${expected_sql_value($order_id)}"]
//
// Loading only checks structure. Templates are parsed by the runner, or up
// front by Suite.Templates for the validate command.
package definition
