package sqlinline

const QSelectStorageCredential = `--sql 91a3d5f8-0c24-47be-8d61-5e2f7a48c093
select provider, access_token, coalesce(refresh_token, '')
from tenant_storage_credentials
where tenant_id = $1 and provider = $2;
`

const QUpdateStorageAccessToken = `--sql 6b2f8e14-9d57-4a30-bc86-f31d04a7e528
update tenant_storage_credentials
set access_token = $3, updated_at = now()
where tenant_id = $1 and provider = $2;
`

const QSelectTenantSettings = `--sql 3e90c7a2-14bf-48d6-9a53-b86e2d1f0c47
select t.ai_videos_enabled, coalesce(t.logo_url, '')
from tenants t
where t.id = $1;
`
