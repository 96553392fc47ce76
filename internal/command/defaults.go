package command

import (
	"net/http"
	"sync"
)

const (
	get  = http.MethodGet
	post = http.MethodPost
	put  = http.MethodPut
	del  = http.MethodDelete
)

func resID() Param {
	return Param{Name: "id", From: FromResource, Type: TypeInteger, Required: true}
}

func resInt(name string) Param {
	return Param{Name: name, From: FromResource, Type: TypeInteger, Required: true}
}

func query(name string, t ParamType, def any) Param {
	return Param{Name: name, From: FromQuery, Type: t, Default: def}
}

func body(name string, t ParamType, def any) Param {
	return Param{Name: name, From: FromPostBody, Type: t, Default: def}
}

func arrayBody(name string, items ParamType) Param {
	return Param{Name: name, From: FromPostBody, Type: TypeArray, Items: items, Default: []any{}}
}

func required(name string, t ParamType) Param {
	return Param{Name: name, From: FromPostBody, Type: t, Required: true}
}

func cmd(name, method string, params ...Param) Command {
	return Command{Name: name, Method: method, Params: params}
}

func chmodParams() []Param {
	params := []Param{resID()}
	for _, n := range []string{
		"ownerUse", "ownerManage", "ownerAdmin",
		"groupUse", "groupManage", "groupAdmin",
		"otherUse", "otherManage", "otherAdmin",
	} {
		params = append(params, body(n, TypeInteger, -1))
	}
	return params
}

// common returns the operations most pool resources share.
func common(resource string) []Command {
	return []Command{
		cmd(resource+".info", get, resID(), query("decrypt", TypeBoolean, false)),
		cmd(resource+".delete", del, resID()),
		cmd(resource+".update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd(resource+".rename", put, resID(), required("name", TypeString)),
		cmd(resource+".chmod", put, chmodParams()...),
		cmd(resource+".chown", put, resID(), body("user", TypeInteger, -1), body("group", TypeInteger, -1)),
	}
}

func lockable(resource string) []Command {
	return []Command{
		cmd(resource+".lock", put, resID(), body("level", TypeInteger, 4), body("test", TypeBoolean, false)),
		cmd(resource+".unlock", put, resID()),
	}
}

// filteredPool is <resource>pool.info(filter, start, end).
func filteredPool(resource string) Command {
	return cmd(resource+"pool.info", get,
		query("filter", TypeInteger, -2),
		query("start", TypeInteger, -1),
		query("end", TypeInteger, -1),
	)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the shared catalog of oned operations.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog()
		for _, group := range [][]Command{
			vmCommands(),
			hostCommands(),
			imageCommands(),
			templateCommands(),
			vnCommands(),
			vnTemplateCommands(),
			clusterCommands(),
			datastoreCommands(),
			groupCommands(),
			userCommands(),
			zoneCommands(),
			secgroupCommands(),
			vrouterCommands(),
			vmgroupCommands(),
			marketCommands(),
			marketappCommands(),
			documentCommands(),
			aclCommands(),
			systemCommands(),
		} {
			defaultCatalog.MustRegister(group...)
		}
	})
	return defaultCatalog
}

func vmCommands() []Command {
	cmds := append(common("vm"), lockable("vm")...)
	return append(cmds,
		cmd("vm.allocate", post, required("template", TypeXML), body("hold", TypeBoolean, false)),
		cmd("vm.action", put, required("action", TypeString), resID()),
		cmd("vm.deploy", put, resID(),
			required("host", TypeInteger),
			body("enforce", TypeBoolean, false),
			body("datastore", TypeInteger, -1),
			body("template", TypeXML, ""),
		),
		cmd("vm.migrate", put, resID(),
			required("host", TypeInteger),
			body("live", TypeBoolean, false),
			body("enforce", TypeBoolean, false),
			body("datastore", TypeInteger, -1),
			body("type", TypeInteger, 0),
		),
		cmd("vm.disksaveas", post, resID(), resInt("disk"),
			required("name", TypeString),
			body("type", TypeString, ""),
			body("snapshot", TypeInteger, -1),
		),
		cmd("vm.disksnapshotcreate", post, resID(), resInt("disk"), required("name", TypeString)),
		cmd("vm.disksnapshotrevert", put, resID(), resInt("disk"), required("snapshot", TypeInteger)),
		cmd("vm.disksnapshotdelete", del, resID(), resInt("disk"), resInt("snapshot")),
		cmd("vm.diskresize", put, resID(), resInt("disk"), required("size", TypeString)),
		cmd("vm.attach", put, resID(), required("template", TypeXML)),
		cmd("vm.detach", put, resID(), required("disk", TypeInteger)),
		cmd("vm.attachnic", put, resID(), required("template", TypeXML)),
		cmd("vm.detachnic", put, resID(), required("nic", TypeInteger)),
		cmd("vm.snapshotcreate", post, resID(), body("name", TypeString, "")),
		cmd("vm.snapshotrevert", put, resID(), required("snapshot", TypeInteger)),
		cmd("vm.snapshotdelete", del, resID(), resInt("snapshot")),
		cmd("vm.resize", put, resID(), required("template", TypeXML), body("enforce", TypeBoolean, false)),
		cmd("vm.updateconf", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("vm.recover", put, resID(), required("operation", TypeInteger)),
		cmd("vm.monitoring", get, resID()),
		cmd("vm.schedadd", post, resID(), required("template", TypeXML)),
		cmd("vm.scheddelete", del, resID(), resInt("sched")),
		cmd("vmpool.info", get,
			query("filter", TypeInteger, -2),
			query("start", TypeInteger, -1),
			query("end", TypeInteger, -1),
			query("state", TypeInteger, -1),
			query("filterByKey", TypeString, ""),
		),
		cmd("vmpool.infoextended", get,
			query("filter", TypeInteger, -2),
			query("start", TypeInteger, -1),
			query("end", TypeInteger, -1),
			query("state", TypeInteger, -1),
			query("filterByKey", TypeString, ""),
		),
		cmd("vmpool.monitoring", get, query("filter", TypeInteger, -2), query("seconds", TypeInteger, -1)),
		cmd("vmpool.accounting", get,
			query("filter", TypeInteger, -2),
			query("startTime", TypeInteger, -1),
			query("endTime", TypeInteger, -1),
		),
		cmd("vmpool.showback", get,
			query("filter", TypeInteger, -2),
			query("startMonth", TypeInteger, -1),
			query("startYear", TypeInteger, -1),
			query("endMonth", TypeInteger, -1),
			query("endYear", TypeInteger, -1),
		),
	)
}

func hostCommands() []Command {
	return []Command{
		cmd("host.allocate", post,
			required("hostname", TypeString),
			required("imMad", TypeString),
			required("vmmMad", TypeString),
			body("cluster", TypeInteger, -1),
		),
		cmd("host.delete", del, resID()),
		cmd("host.status", put, resID(), required("status", TypeInteger)),
		cmd("host.update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("host.rename", put, resID(), required("name", TypeString)),
		cmd("host.info", get, resID(), query("decrypt", TypeBoolean, false)),
		cmd("host.monitoring", get, resID()),
		cmd("hostpool.info", get),
		cmd("hostpool.monitoring", get, query("seconds", TypeInteger, -1)),
	}
}

func imageCommands() []Command {
	cmds := append(common("image"), lockable("image")...)
	return append(cmds,
		cmd("image.allocate", post,
			required("template", TypeXML),
			required("datastore", TypeInteger),
			body("capacity", TypeBoolean, false),
		),
		cmd("image.clone", post, resID(), required("name", TypeString), body("datastore", TypeInteger, -1)),
		cmd("image.enable", put, resID(), body("enable", TypeBoolean, true)),
		cmd("image.persistent", put, resID(), body("persistent", TypeBoolean, true)),
		cmd("image.chtype", put, resID(), required("type", TypeString)),
		cmd("image.snapshotdelete", del, resID(), resInt("snapshot")),
		cmd("image.snapshotrevert", put, resID(), required("snapshot", TypeInteger)),
		cmd("image.snapshotflatten", put, resID(), required("snapshot", TypeInteger)),
		cmd("image.restore", post, resID(), required("datastore", TypeInteger), body("options", TypeXML, "")),
		filteredPool("image"),
	)
}

func templateCommands() []Command {
	cmds := lockable("template")
	return append(cmds,
		cmd("template.info", get, resID(), query("extended", TypeBoolean, false), query("decrypt", TypeBoolean, false)),
		cmd("template.allocate", post, required("template", TypeXML)),
		cmd("template.clone", post, resID(), required("name", TypeString), body("image", TypeBoolean, false)),
		cmd("template.delete", del, resID(), query("image", TypeBoolean, false)),
		cmd("template.instantiate", post, resID(),
			body("name", TypeString, ""),
			body("hold", TypeBoolean, false),
			body("template", TypeXML, ""),
			body("persistent", TypeBoolean, false),
		),
		cmd("template.update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("template.rename", put, resID(), required("name", TypeString)),
		cmd("template.chmod", put, append(chmodParams(), body("image", TypeBoolean, false))...),
		cmd("template.chown", put, resID(), body("user", TypeInteger, -1), body("group", TypeInteger, -1)),
		filteredPool("template"),
	)
}

func vnCommands() []Command {
	cmds := append(common("vn"), lockable("vn")...)
	return append(cmds,
		cmd("vn.allocate", post, required("template", TypeXML), body("cluster", TypeInteger, -1)),
		cmd("vn.add_ar", put, resID(), required("template", TypeXML)),
		cmd("vn.rm_ar", del, resID(), resInt("address")),
		cmd("vn.update_ar", put, resID(), required("template", TypeXML)),
		cmd("vn.reserve", put, resID(), required("template", TypeXML)),
		cmd("vn.free_ar", put, resID(), required("range", TypeInteger)),
		cmd("vn.hold", put, resID(), required("template", TypeXML)),
		cmd("vn.release", put, resID(), required("template", TypeXML)),
		cmd("vn.recover", put, resID(), required("operation", TypeInteger)),
		filteredPool("vn"),
	)
}

func vnTemplateCommands() []Command {
	cmds := append(common("vntemplate"), lockable("vntemplate")...)
	return append(cmds,
		cmd("vntemplate.allocate", post, required("template", TypeXML)),
		cmd("vntemplate.clone", post, resID(), required("name", TypeString)),
		cmd("vntemplate.instantiate", post, resID(), body("name", TypeString, ""), body("template", TypeXML, "")),
		filteredPool("vntemplate"),
	)
}

func clusterCommands() []Command {
	return []Command{
		cmd("cluster.allocate", post, required("name", TypeString)),
		cmd("cluster.delete", del, resID()),
		cmd("cluster.update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("cluster.rename", put, resID(), required("name", TypeString)),
		cmd("cluster.info", get, resID(), query("decrypt", TypeBoolean, false)),
		cmd("cluster.addhost", put, resID(), required("host", TypeInteger)),
		cmd("cluster.delhost", del, resID(), resInt("host")),
		cmd("cluster.adddatastore", put, resID(), required("datastore", TypeInteger)),
		cmd("cluster.deldatastore", del, resID(), resInt("datastore")),
		cmd("cluster.addvnet", put, resID(), required("vnet", TypeInteger)),
		cmd("cluster.delvnet", del, resID(), resInt("vnet")),
		cmd("clusterpool.info", get),
	}
}

func datastoreCommands() []Command {
	return append(common("datastore"),
		cmd("datastore.allocate", post, required("template", TypeXML), body("cluster", TypeInteger, -1)),
		cmd("datastore.enable", put, resID(), body("enable", TypeBoolean, true)),
		cmd("datastorepool.info", get),
	)
}

func groupCommands() []Command {
	return []Command{
		cmd("group.allocate", post, required("name", TypeString)),
		cmd("group.delete", del, resID()),
		cmd("group.info", get, Param{Name: "id", From: FromResource, Type: TypeInteger, Default: -1}, query("decrypt", TypeBoolean, false)),
		cmd("group.update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("group.addadmin", put, resID(), required("user", TypeInteger)),
		cmd("group.deladmin", del, resID(), resInt("user")),
		cmd("group.quota", put, resID(), required("template", TypeXML)),
		cmd("grouppool.info", get),
		cmd("groupquota.info", get),
		cmd("groupquota.update", put, required("template", TypeXML)),
	}
}

func userCommands() []Command {
	return []Command{
		cmd("user.allocate", post,
			required("username", TypeString),
			required("password", TypeString),
			body("driver", TypeString, ""),
			arrayBody("group", TypeInteger),
		),
		cmd("user.delete", del, resID()),
		cmd("user.passwd", put, resID(), required("password", TypeString)),
		cmd("user.login", post,
			required("user", TypeString),
			body("token", TypeString, ""),
			body("expire", TypeInteger, 36000),
			body("gid", TypeInteger, -1),
		),
		cmd("user.update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("user.chauth", put, resID(), required("driver", TypeString), body("password", TypeString, "")),
		cmd("user.quota", put, resID(), required("template", TypeXML)),
		cmd("user.chgrp", put, resID(), required("group", TypeInteger)),
		cmd("user.addgroup", put, resID(), required("group", TypeInteger)),
		cmd("user.delgroup", del, resID(), resInt("group")),
		cmd("user.enable", put, resID(), body("enable", TypeBoolean, true)),
		cmd("user.info", get, Param{Name: "id", From: FromResource, Type: TypeInteger, Default: -1}, query("decrypt", TypeBoolean, false)),
		cmd("userpool.info", get),
		cmd("userquota.info", get),
		cmd("userquota.update", put, required("template", TypeXML)),
	}
}

func zoneCommands() []Command {
	return []Command{
		cmd("zone.allocate", post, required("template", TypeXML)),
		cmd("zone.delete", del, resID()),
		cmd("zone.update", put, resID(), required("template", TypeXML), body("replace", TypeInteger, 0)),
		cmd("zone.rename", put, resID(), required("name", TypeString)),
		cmd("zone.info", get, resID(), query("decrypt", TypeBoolean, false)),
		cmd("zone.raftstatus", get),
		cmd("zonepool.info", get),
	}
}

func secgroupCommands() []Command {
	return append(common("secgroup"),
		cmd("secgroup.allocate", post, required("template", TypeXML)),
		cmd("secgroup.clone", post, resID(), required("name", TypeString)),
		cmd("secgroup.commit", put, resID(), body("recovery", TypeBoolean, false)),
		filteredPool("secgroup"),
	)
}

func vrouterCommands() []Command {
	cmds := append(common("vrouter"), lockable("vrouter")...)
	return append(cmds,
		cmd("vrouter.allocate", post, required("template", TypeXML)),
		cmd("vrouter.instantiate", post, resID(),
			body("number", TypeInteger, 1),
			required("templateId", TypeInteger),
			body("name", TypeString, ""),
			body("hold", TypeBoolean, false),
			body("template", TypeXML, ""),
		),
		cmd("vrouter.attachnic", put, resID(), required("template", TypeXML)),
		cmd("vrouter.detachnic", put, resID(), required("nic", TypeInteger)),
		filteredPool("vrouter"),
	)
}

func vmgroupCommands() []Command {
	cmds := append(common("vmgroup"), lockable("vmgroup")...)
	return append(cmds,
		cmd("vmgroup.allocate", post, required("template", TypeXML)),
		filteredPool("vmgroup"),
	)
}

func marketCommands() []Command {
	return append(common("market"),
		cmd("market.allocate", post, required("template", TypeXML)),
		cmd("market.enable", put, resID(), body("enable", TypeBoolean, true)),
		cmd("marketpool.info", get),
	)
}

func marketappCommands() []Command {
	cmds := append(common("marketapp"), lockable("marketapp")...)
	return append(cmds,
		cmd("marketapp.allocate", post, required("template", TypeXML), required("market", TypeInteger)),
		cmd("marketapp.enable", put, resID(), body("enable", TypeBoolean, true)),
		filteredPool("marketapp"),
	)
}

func documentCommands() []Command {
	cmds := append(common("document"), lockable("document")...)
	return append(cmds,
		cmd("document.allocate", post, required("template", TypeXML), required("type", TypeInteger)),
		cmd("document.clone", post, resID(), required("name", TypeString)),
		cmd("documentpool.info", get,
			query("filter", TypeInteger, -2),
			query("start", TypeInteger, -1),
			query("end", TypeInteger, -1),
			query("type", TypeInteger, 100),
		),
	)
}

func aclCommands() []Command {
	return []Command{
		cmd("acl.addrule", post,
			required("user", TypeString),
			required("resource", TypeString),
			required("right", TypeString),
			body("zone", TypeString, ""),
		),
		cmd("acl.delrule", del, resID()),
		cmd("acl.info", get),
	}
}

func systemCommands() []Command {
	return []Command{
		cmd("system.version", get),
		cmd("system.config", get),
	}
}
